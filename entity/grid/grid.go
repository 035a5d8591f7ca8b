package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidMatrix 地图矩阵非法（空、参差不齐或取值不是0/1）
var ErrInvalidMatrix = errors.New("invalid grid matrix")

// Cell 网格坐标（行, 列）
type Cell struct {
	Row int `json:"row" yaml:"row" bson:"row"`
	Col int `json:"col" yaml:"col" bson:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Add 返回偏移后的坐标
func (c Cell) Add(dRow, dCol int) Cell {
	return Cell{Row: c.Row + dRow, Col: c.Col + dCol}
}

// Manhattan 曼哈顿距离
func Manhattan(a, b Cell) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

// Adjacent 两个坐标是否四邻接
func Adjacent(a, b Cell) bool {
	return Manhattan(a, b) == 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Map 静态网格地图
// 功能：提供固定尺寸二维网格的可通行性查询，构造后只读
type Map struct {
	rows, cols int
	cells      []bool // 行优先存储，true为可通行
}

// New 根据0/1矩阵创建地图
// 功能：校验矩阵为非空矩形且取值只有0和1，并拷贝为只读的内部表示
// 参数：matrix-地图矩阵，1表示道路（可通行），0表示障碍
// 返回：地图实例，矩阵非法时返回ErrInvalidMatrix
func New(matrix [][]int32) (*Map, error) {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidMatrix)
	}
	rows, cols := len(matrix), len(matrix[0])
	m := &Map{rows: rows, cols: cols, cells: make([]bool, rows*cols)}
	for r, row := range matrix {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, r, len(row), cols)
		}
		for c, v := range row {
			switch v {
			case 0:
			case 1:
				m.cells[r*cols+c] = true
			default:
				return nil, fmt.Errorf("%w: value %d at (%d,%d)", ErrInvalidMatrix, v, r, c)
			}
		}
	}
	return m, nil
}

// Rows 行数
func (m *Map) Rows() int { return m.rows }

// Cols 列数
func (m *Map) Cols() int { return m.cols }

// InBounds 坐标是否在地图范围内
func (m *Map) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < m.rows && c.Col >= 0 && c.Col < m.cols
}

// IsTraversable 坐标是否可通行，越界返回false
func (m *Map) IsTraversable(c Cell) bool {
	if !m.InBounds(c) {
		return false
	}
	return m.cells[c.Row*m.cols+c.Col]
}

// Matrix 导出0/1矩阵的拷贝，供输出使用
func (m *Map) Matrix() [][]int32 {
	res := make([][]int32, m.rows)
	for r := range res {
		row := make([]int32, m.cols)
		for c := range row {
			if m.cells[r*m.cols+c] {
				row[c] = 1
			}
		}
		res[r] = row
	}
	return res
}
