package service

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Clock 提供"组织基准时区下的当前时刻"。
// 所有截止时间判断都必须通过 Clock 取当前时间，测试中注入固定时钟。
type Clock interface {
	Now() time.Time
}

type zoneClock struct {
	loc *time.Location
}

// NewZoneClock 创建固定时区的系统时钟
func NewZoneClock(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区 %q 失败: %w", timezone, err)
	}
	return zoneClock{loc: loc}, nil
}

func (c zoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}
