package entity

import "fmt"

// LightState 信号灯状态
type LightState int32

const (
	LightStateRed    LightState = iota // 红灯
	LightStateGreen                    // 绿灯
	LightStateYellow                   // 黄灯
)

func (s LightState) String() string {
	switch s {
	case LightStateRed:
		return "red"
	case LightStateGreen:
		return "green"
	case LightStateYellow:
		return "yellow"
	default:
		return fmt.Sprintf("LightState(%d)", int32(s))
	}
}

// MarshalText 输出为小写状态名
func (s LightState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 从状态名解析
func (s *LightState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "red":
		*s = LightStateRed
	case "green":
		*s = LightStateGreen
	case "yellow":
		*s = LightStateYellow
	default:
		return fmt.Errorf("unknown light state %q", string(b))
	}
	return nil
}
