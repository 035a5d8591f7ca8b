package route

import "errors"

var (
	// ErrInvalidStart 起点越界
	ErrInvalidStart = errors.New("start position out of bounds")
	// ErrInvalidGoal 终点越界或不可通行
	ErrInvalidGoal = errors.New("goal position invalid")
	// ErrUnreachableDestination 目的地修正超过步数上限仍未找到可通行格子
	ErrUnreachableDestination = errors.New("unreachable destination")
)
