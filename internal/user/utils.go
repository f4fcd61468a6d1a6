package user

import (
	"slices"
	"strconv"

	"kiomedine-order-bot/internal/pkg/model"
)

func apply(u *model.User, p Patch) {
	set(&u.Name, p.Name)
	set(&u.Username, p.Username)
	set(&u.Town, p.Town)
	set(&u.Phone, p.Phone)
	set(&u.Workplace, p.Workplace)
	set(&u.VerifierName, p.VerifierName)
	if p.Verified != nil {
		u.Verified = *p.Verified
	}
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func merge(u *model.User, r model.User, takeVerified bool) {
	keep(&u.Name, r.Name)
	keep(&u.Username, r.Username)
	keep(&u.Town, r.Town)
	keep(&u.Phone, r.Phone)
	keep(&u.Workplace, r.Workplace)
	keep(&u.VerifierName, r.VerifierName)
	if takeVerified {
		u.Verified = r.Verified
	}
	for _, id := range r.Orders {
		if !slices.Contains(u.Orders, id) {
			u.Orders = append(u.Orders, id)
		}
	}
}

func keep(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func clone(u *model.User) model.User {
	c := *u
	c.Orders = slices.Clone(u.Orders)
	return c
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Ptr is a helper for building a Patch.
func Ptr[T any](v T) *T {
	return &v
}
