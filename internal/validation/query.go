package validation

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/dukerupert/contactbook/internal/model"
)

type contactQuery struct {
	Page  int `json:"page" validate:"min=1"`
	Limit int `json:"limit" validate:"pagesize"`
}

// ContactFilter parses the page, limit and favorite query parameters of a contact listing.
func (v *Validator) ContactFilter(q url.Values) (model.ContactFilter, *FieldError) {
	cq := contactQuery{Page: 1, Limit: model.DefaultContactLimit}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &cq.Page}, {"limit", &cq.Limit}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return model.ContactFilter{}, &FieldError{Field: p.name, Message: p.name + " must be a number"}
		}
		*p.dst = n
	}
	if ferr := v.Struct(&cq); ferr != nil {
		return model.ContactFilter{}, ferr
	}

	f := model.ContactFilter{Page: cq.Page, Limit: cq.Limit}
	if maxPage := f.MaxPage(); f.Page > maxPage {
		return model.ContactFilter{}, &FieldError{Field: "page", Message: fmt.Sprintf("page must be at most %d", maxPage)}
	}
	if raw := q.Get("favorite"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return model.ContactFilter{}, &FieldError{Field: "favorite", Message: "favorite must be a boolean"}
		}
		f.Favorite = &b
	}
	return f, nil
}
