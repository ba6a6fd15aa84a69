package cache

import (
	"time"
)

// TimeUntilNextHour は次の正時までの期間を返します。取り込みは毎時実行されます。
func TimeUntilNextHour() time.Duration {
	return untilNextHour(time.Now())
}

func untilNextHour(now time.Time) time.Duration {
	next := now.Truncate(time.Hour).Add(time.Hour)
	return next.Sub(now)
}
