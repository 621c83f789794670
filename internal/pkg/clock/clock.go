// internal/pkg/clock/clock.go
package clock

import "time"

// Clock 把"现在几点"做成可注入的依赖，裁决时间戳在测试里才可断言。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem 返回基于 time.Now 的系统时钟。
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed 返回一个永远停在同一时刻的时钟，供测试使用。
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
