package browser

import (
	"catalog_scraper/domain/entities"

	"github.com/playwright-community/playwright-go"
)

// fromStorageState - converts playwright's storage state into the session entity
func fromStorageState(state *playwright.StorageState) entities.StorageState {
	out := entities.StorageState{
		Cookies: make([]entities.Cookie, 0, len(state.Cookies)),
		Origins: make([]entities.Origin, 0, len(state.Origins)),
	}

	for _, c := range state.Cookies {
		cookie := entities.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HttpOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			cookie.SameSite = string(*c.SameSite)
		}
		out.Cookies = append(out.Cookies, cookie)
	}

	for _, o := range state.Origins {
		origin := entities.Origin{Origin: o.Origin}
		for _, kv := range o.LocalStorage {
			origin.LocalStorage = append(origin.LocalStorage, entities.NameValue{Name: kv.Name, Value: kv.Value})
		}
		out.Origins = append(out.Origins, origin)
	}

	return out
}

// toOptionalCookies - converts stored cookies into the form AddCookies accepts
func toOptionalCookies(cookies []entities.Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(c.Path),
			Expires:  playwright.Float(c.Expires),
			HttpOnly: playwright.Bool(c.HttpOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.SameSite != "" {
			sameSite := playwright.SameSiteAttribute(c.SameSite)
			cookie.SameSite = &sameSite
		}
		out = append(out, cookie)
	}
	return out
}
