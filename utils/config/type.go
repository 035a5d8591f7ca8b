package config

// InputPath 指定场景数据来源的配置（MongoDB、文件系统）
// 功能：定义数据输入路径的配置结构，支持MongoDB和文件两种数据源以及本地缓存
type InputPath struct {
	DB        string `yaml:"db"`                   // 数据库名
	Col       string `yaml:"col"`                  // 集合名
	Name      string `yaml:"name,omitempty"`       // 场景名，为空则取集合中第一个文档
	Cache     string `yaml:"cache,omitempty"`      // 缓存文件名，为空则采用默认路径{db}.{col}.json
	OnlyCache bool   `yaml:"only_cache,omitempty"` // 只从缓存中获取
	File      string `yaml:"file,omitempty"`       // 文件路径（优先级高于MongoDB）
}

// GetCachePath 获取缓存文件路径
// 说明：未指定缓存路径时使用默认命名规则：{数据库名}.{集合名}[.{场景名}].json
func (p InputPath) GetCachePath() string {
	if p.Cache != "" {
		return p.Cache
	}
	if p.Name != "" {
		return p.DB + "." + p.Col + "." + p.Name + ".json"
	}
	return p.DB + "." + p.Col + ".json"
}

// Input 指定模拟器输入数据的配置项
// 说明：既没有文件也没有MongoDB连接时使用内置的参考场景
type Input struct {
	URI      string    `yaml:"uri,omitempty"`      // MongoDB连接字符串
	Scenario InputPath `yaml:"scenario,omitempty"` // 场景（地图、信号灯、车辆）
}

// ControlStep 指定模拟步数与节奏
type ControlStep struct {
	Total    int64   `yaml:"total"`              // 总步数
	Interval float64 `yaml:"interval,omitempty"` // 相邻两步之间的实际等待时间（秒），0表示不等待
}

// ControlLight 信号灯周期配置
// 说明：绿灯在 tick%cycle_length==yellow_at 时变黄，黄灯在 tick%cycle_length==red_at 时变红
type ControlLight struct {
	CycleLength int64 `yaml:"cycle_length,omitempty"`
	YellowAt    int64 `yaml:"yellow_at,omitempty"`
	RedAt       int64 `yaml:"red_at,omitempty"`
}

// Control 模拟器控制配置
type Control struct {
	Step         ControlStep  `yaml:"step"`
	Light        ControlLight `yaml:"light,omitempty"`
	Seed         uint64       `yaml:"seed"`                    // 初始绿灯选择的随机种子
	InitialGreen *int         `yaml:"initial_green,omitempty"` // 指定初始绿灯下标，优先于随机选择
}

// 输出端背压策略
const (
	BackpressureBlock      = "block"       // 队列满时模拟等待
	BackpressureDropOldest = "drop_oldest" // 队列满时丢弃最旧的帧
)

// Output 输出配置
type Output struct {
	Listen        string `yaml:"listen,omitempty"`          // 可视化websocket与RPC的HTTP监听地址，为空则不启动
	WaitForViewer bool   `yaml:"wait_for_viewer,omitempty"` // 是否等待第一个可视化客户端连接后再开始模拟
	Backpressure  string `yaml:"backpressure,omitempty"`    // 背压策略
	QueueSize     int    `yaml:"queue_size,omitempty"`      // 每个输出端的队列长度
	Record        string `yaml:"record,omitempty"`          // 回放文件路径（.jsonl.zst），为空则不记录
	SQLite        string `yaml:"sqlite,omitempty"`          // 逐步状态数据库路径，为空则不记录
}

// Config YAML配置文件的根结构
type Config struct {
	Input   Input   `yaml:"input"`   // 输入
	Control Control `yaml:"control"` // 模拟过程控制
	Output  Output  `yaml:"output"`  // 输出
}
