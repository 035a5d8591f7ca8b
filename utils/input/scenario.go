package input

// Light 信号灯输入
type Light struct {
	ID        int32 `yaml:"id" json:"id" bson:"id"`
	Position  []int `yaml:"position" json:"position" bson:"position"`                                  // [行, 列]
	Successor *int  `yaml:"successor,omitempty" json:"successor,omitempty" bson:"successor,omitempty"` // 环上后继信号灯下标，缺省为下一个（末尾回到0）
}

// Car 车辆输入
type Car struct {
	ID       int32  `yaml:"id" json:"id" bson:"id"`
	Position []int  `yaml:"position" json:"position" bson:"position"`                         // [行, 列]
	Intent   string `yaml:"intent,omitempty" json:"intent,omitempty" bson:"intent,omitempty"` // straight/left/right
	Light    *int   `yaml:"light,omitempty" json:"light,omitempty" bson:"light,omitempty"`    // 所属信号灯下标，缺省为曼哈顿距离最近的信号灯
}

// Scenario 模拟场景：地图、信号灯环与车辆
// 说明：信号灯与车辆的列表顺序有意义，分别决定信号环与更新顺序
type Scenario struct {
	Name   string    `yaml:"name,omitempty" json:"name,omitempty" bson:"name,omitempty"`
	Map    [][]int32 `yaml:"map" json:"map" bson:"map"`
	Lights []Light   `yaml:"lights" json:"lights" bson:"lights"`
	Cars   []Car     `yaml:"cars" json:"cars" bson:"cars"`
}

func intPtr(i int) *int { return &i }

// Reference 参考场景
// 功能：12x12十字路网，4个信号灯按顺时针组成环，8辆车
func Reference() *Scenario {
	return &Scenario{
		Name: "cross12",
		Map: [][]int32{
			{0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0},
			{0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0},
			{0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0},
			{0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0},
			{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
			{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
			{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
			{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
			{0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0},
			{0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0},
			{0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0},
			{0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0},
		},
		Lights: []Light{
			{ID: 0, Position: []int{3, 3}, Successor: intPtr(1)},
			{ID: 1, Position: []int{9, 3}, Successor: intPtr(2)},
			{ID: 2, Position: []int{9, 9}, Successor: intPtr(3)},
			{ID: 3, Position: []int{3, 9}, Successor: intPtr(0)},
		},
		Cars: []Car{
			{ID: 0, Position: []int{5, 3}, Intent: "straight", Light: intPtr(0)},
			{ID: 1, Position: []int{5, 2}, Intent: "straight", Light: intPtr(0)},
			{ID: 2, Position: []int{3, 7}, Intent: "right", Light: intPtr(3)},
			{ID: 3, Position: []int{3, 8}, Intent: "right", Light: intPtr(3)},
			{ID: 4, Position: []int{7, 9}, Intent: "left", Light: intPtr(2)},
			{ID: 5, Position: []int{7, 10}, Intent: "left", Light: intPtr(2)},
			{ID: 6, Position: []int{9, 5}, Intent: "left", Light: intPtr(1)},
			{ID: 7, Position: []int{10, 5}, Intent: "left", Light: intPtr(1)},
		},
	}
}
