package poi_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/neexbeast/cityplan/internal/poi"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestParseOpeningHours(t *testing.T) {
	tests := []struct {
		name string
		expr string
		now  time.Time
		want poi.OpenStatus
	}{
		{"empty yields unknown", "", at(12, 0), poi.OpenStatusUnknown},
		{"always open", "24/7", at(3, 0), poi.OpenStatusOpen},
		{"inside window", "Mo-Su 08:00-22:00", at(12, 30), poi.OpenStatusOpen},
		{"at opening minute", "Mo-Su 08:00-22:00", at(8, 0), poi.OpenStatusOpen},
		{"at closing minute", "Mo-Su 08:00-22:00", at(22, 0), poi.OpenStatusOpen},
		{"before opening", "Mo-Su 09:00-21:00", at(8, 59), poi.OpenStatusClosed},
		{"after closing", "Mo-Su 09:00-21:00", at(21, 1), poi.OpenStatusClosed},
		{"overnight window open late", "Mo-Su 20:00-02:00", at(23, 0), poi.OpenStatusOpen},
		{"overnight window open early", "Mo-Su 20:00-02:00", at(1, 30), poi.OpenStatusOpen},
		{"overnight window closed", "Mo-Su 20:00-02:00", at(12, 0), poi.OpenStatusClosed},
		{"per-day rules unparseable", "Mo-Fr 08:00-20:00; Sa 10:00-14:00", at(12, 0), poi.OpenStatusUnknown},
		{"free text unparseable", "sunrise-sunset", at(12, 0), poi.OpenStatusUnknown},
		{"surrounding whitespace tolerated", "  24/7  ", at(12, 0), poi.OpenStatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, poi.ParseOpeningHours(tt.expr, tt.now))
		})
	}
}
