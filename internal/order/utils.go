package order

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"kiomedine-order-bot/internal/pkg/model"

	"github.com/gosimple/slug"
)

// ReportFilename builds a transliterated file name for an exported report.
func ReportFilename(title string, at time.Time) string {
	name := slug.Make(strings.Join([]string{title, at.Format("2006-01-02 15-04")}, " "))
	return name + ".txt"
}

func clone(o *model.Order) model.Order {
	c := *o
	c.AdminMessages = slices.Clone(o.AdminMessages)
	return c
}

func sortByCreation(orders []model.Order) {
	slices.SortFunc(orders, func(a, b model.Order) int {
		if c := cmp.Compare(a.ID.Timestamp, b.ID.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.ChatID, b.ID.ChatID)
	})
}
