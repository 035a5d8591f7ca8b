package route

import (
	"fmt"
	"strings"

	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
)

// Intent 车辆转向意图
type Intent int32

const (
	IntentStraight Intent = iota // 直行
	IntentLeft                   // 左转
	IntentRight                  // 右转
)

func (i Intent) String() string {
	switch i {
	case IntentStraight:
		return "straight"
	case IntentLeft:
		return "left"
	case IntentRight:
		return "right"
	default:
		return fmt.Sprintf("Intent(%d)", int32(i))
	}
}

// ParseIntent 解析转向意图，大小写不敏感，"frente"视为直行
func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "straight", "frente", "":
		return IntentStraight, nil
	case "left":
		return IntentLeft, nil
	case "right":
		return IntentRight, nil
	default:
		return 0, fmt.Errorf("unknown intent %q", s)
	}
}

// AssignDestination 计算车辆目的地
// 功能：按车辆所在象限选择路网远端边界上的目标格子，不可通行时按意图逐格修正
// 参数：m-网格地图，current-车辆当前位置，intent-转向意图
// 返回：可通行的目的地；修正越界或超过步数上限时返回ErrUnreachableDestination
// 算法说明：
// 1. 以行、列中点划分四个象限
//   - 上左：同一行的最右列
//   - 上右：同一列的最下行
//   - 下左：同一列的最上行
//   - 下右：同一行的最左列
//
// 2. 目标不可通行时修正：直行沿行方向朝地图中线移动，左转列+1，右转列-1
// 3. 修正步数上限为行数+列数
func AssignDestination(m *grid.Map, current grid.Cell, intent Intent) (grid.Cell, error) {
	midRow, midCol := m.Rows()/2, m.Cols()/2
	var dest grid.Cell
	switch {
	case current.Row < midRow && current.Col < midCol:
		dest = grid.Cell{Row: current.Row, Col: m.Cols() - 1}
	case current.Row < midRow:
		dest = grid.Cell{Row: m.Rows() - 1, Col: current.Col}
	case current.Col < midCol:
		dest = grid.Cell{Row: 0, Col: current.Col}
	default:
		dest = grid.Cell{Row: current.Row, Col: 0}
	}

	var dRow, dCol int
	switch intent {
	case IntentStraight:
		dRow = -1
		if current.Row < midRow {
			dRow = 1
		}
	case IntentLeft:
		dCol = 1
	case IntentRight:
		dCol = -1
	default:
		return grid.Cell{}, fmt.Errorf("%w: unknown intent %v", ErrUnreachableDestination, intent)
	}

	limit := m.Rows() + m.Cols()
	for i := 0; !m.IsTraversable(dest); i++ {
		if i >= limit || !m.InBounds(dest) {
			return grid.Cell{}, fmt.Errorf("%w: from %v with intent %v, last candidate %v", ErrUnreachableDestination, current, intent, dest)
		}
		dest = dest.Add(dRow, dCol)
	}
	return dest, nil
}
