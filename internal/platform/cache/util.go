package cache

import (
	"time"
)

// ecbPublicationHour is when the ECB publishes the daily reference rates (Frankfurt time).
const ecbPublicationHour = 16

// TimeUntilNextECBPublication は次のECB参照レート公表時刻（フランクフルト時間16時）までの期間を返します。
// 当日のレートはそれまで変わらないため、キャッシュのTTLとして使用します。
func TimeUntilNextECBPublication() time.Duration {
	return timeUntilNextECBPublication(time.Now())
}

func timeUntilNextECBPublication(now time.Time) time.Duration {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		loc = time.FixedZone("CET", 60*60)
	}
	now = now.In(loc)

	next := time.Date(now.Year(), now.Month(), now.Day(), ecbPublicationHour, 0, 0, 0, loc)
	// 本日分が既に公表済みの場合は翌日の公表時刻を使用
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
