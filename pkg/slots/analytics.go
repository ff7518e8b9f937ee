package slots

import (
	"math"
	"time"

	"tgads_go/models"

	"github.com/shopspring/decimal"
)

// SuspicionThreshold: выше этого балла канал скрывается из каталога.
const SuspicionThreshold = 50

// ERR: вовлечённость: средние просмотры к числу подписчиков, в процентах.
func ERR(subscribers, avgViews int) float64 {
	if subscribers <= 0 {
		return 0
	}
	return float64(avgViews) / float64(subscribers) * 100
}

// AverageViews: целое среднее просмотров.
func AverageViews(views []int) int {
	if len(views) == 0 {
		return 0
	}
	sum := 0
	for _, v := range views {
		sum += v
	}
	return sum / len(views)
}

// CPM: цена за тысячу просмотров по охвату.
func CPM(avgViews int) float64 {
	switch {
	case avgViews < 100:
		return 0.5
	case avgViews < 500:
		return 1.0
	case avgViews < 1000:
		return 1.5
	case avgViews < 5000:
		return 2.0
	case avgViews < 10000:
		return 2.5
	case avgViews < 50000:
		return 3.0
	}
	return 4.0
}

var (
	minPostPrice = decimal.RequireFromString("0.5")
	minPinPrice  = decimal.NewFromInt(1)
)

// RecommendedPrices: рекомендуемые цены за день для поста и закрепа.
func RecommendedPrices(subscribers, avgViews int) (post, pin decimal.Decimal) {
	if subscribers == 0 || avgViews == 0 {
		return decimal.Zero, decimal.Zero
	}
	cpm := CPM(avgViews)
	switch err := ERR(subscribers, avgViews); {
	case err > 50:
		cpm *= 0.7
	case err > 30:
		cpm *= 1.3
	case err > 15:
		cpm *= 1.1
	case err < 5:
		cpm *= 0.8
	}
	post = decimal.NewFromFloat(float64(avgViews) / 1000 * cpm).Round(2)
	pin = post.Mul(decimal.NewFromInt(2)).Round(2)
	return decimal.Max(post, minPostPrice), decimal.Max(pin, minPinPrice)
}

// Quality: оценка качества аудитории.
func Quality(subscribers int, err float64) (int, string) {
	if subscribers > 10000 {
		switch {
		case err > 25:
			return 95, "Топ"
		case err > 15:
			return 80, "Отличное"
		case err > 10:
			return 65, "Хорошее"
		case err > 5:
			return 45, "Среднее"
		}
		return 25, "Низкое"
	}
	switch {
	case err > 40:
		return 85, "Отличное"
	case err > 25:
		return 70, "Хорошее"
	case err > 15:
		return 50, "Среднее"
	}
	return 30, "Низкое"
}

// Suspicion: балл подозрительности: накрутка просмотров или мёртвая аудитория.
func Suspicion(subscribers int, err float64, views []int) int {
	score := 0
	switch {
	case err > 70:
		score += 50
	case err > 50:
		score += 30
	}
	if identical(views) && views[0] > 0 {
		score += 40
	}
	if subscribers > 20000 && err < 3 {
		score += 35
	}
	return score
}

func identical(views []int) bool {
	if len(views) == 0 {
		return false
	}
	for _, v := range views[1:] {
		if v != views[0] {
			return false
		}
	}
	return true
}

// Analyze собирает статистику канала по числу подписчиков и просмотрам последних постов.
func Analyze(subscribers int, views []int, now time.Time) models.SlotStats {
	avg := AverageViews(views)
	err := ERR(subscribers, avg)
	score, label := Quality(subscribers, err)
	suspicion := Suspicion(subscribers, err, views)
	post, pin := RecommendedPrices(subscribers, avg)
	return models.SlotStats{
		Subscribers:    subscribers,
		AvgViews:       avg,
		ERR:            math.Round(err*100) / 100,
		QualityScore:   score,
		QualityLabel:   label,
		SuspicionScore: suspicion,
		IsSuspicious:   suspicion > SuspicionThreshold,
		SuggestedPost:  post,
		SuggestedPin:   pin,
		UpdatedAt:      &now,
	}
}
