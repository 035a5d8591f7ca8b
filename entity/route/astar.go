package route

import (
	"fmt"

	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/container"
)

// 邻居偏移，顺序固定：+列、-列、+行、-行
var neighborOffsets = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// FindPath A*最短路搜索
// 功能：在四邻接、单位代价的网格上搜索从start到goal的最短路径
// 参数：m-网格地图，start-起点，goal-终点
// 返回：包含起终点的坐标序列；搜索空间耗尽仍未到达终点时返回空序列（不是错误）
// 算法说明：
// 1. 检查起点在范围内（起点不要求可通行）、终点在范围内且可通行
// 2. 启发函数为曼哈顿距离，优先级为 g+h
// 3. 使用稳定的最小优先队列，优先级相同时按发现顺序扩展
// 4. 终点出队时回溯cameFrom得到路径
func FindPath(m *grid.Map, start, goal grid.Cell) ([]grid.Cell, error) {
	if !m.InBounds(start) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStart, start)
	}
	if !m.InBounds(goal) {
		return nil, fmt.Errorf("%w: out of bounds %v", ErrInvalidGoal, goal)
	}
	if !m.IsTraversable(goal) {
		return nil, fmt.Errorf("%w: not traversable %v", ErrInvalidGoal, goal)
	}

	gScore := map[grid.Cell]int{start: 0}
	cameFrom := make(map[grid.Cell]grid.Cell)
	closed := make(map[grid.Cell]struct{})
	open := container.NewPriorityQueue[grid.Cell]()
	open.HeapPush(start, float64(grid.Manhattan(start, goal)))

	for open.Len() > 0 {
		current, _ := open.HeapPop()
		if current == goal {
			return reconstruct(cameFrom, start, goal), nil
		}
		if _, ok := closed[current]; ok {
			// 过期的队列项
			continue
		}
		closed[current] = struct{}{}

		for _, offset := range neighborOffsets {
			next := current.Add(offset[0], offset[1])
			if !m.IsTraversable(next) {
				continue
			}
			if _, ok := closed[next]; ok {
				continue
			}
			tentative := gScore[current] + 1
			if g, ok := gScore[next]; ok && tentative >= g {
				continue
			}
			cameFrom[next] = current
			gScore[next] = tentative
			open.HeapPush(next, float64(tentative+grid.Manhattan(next, goal)))
		}
	}
	return []grid.Cell{}, nil
}

func reconstruct(cameFrom map[grid.Cell]grid.Cell, start, goal grid.Cell) []grid.Cell {
	path := []grid.Cell{goal}
	for current := goal; current != start; {
		current = cameFrom[current]
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
