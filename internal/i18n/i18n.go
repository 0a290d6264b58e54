// Package i18n holds the UI dictionaries and picks a language per request.
package i18n

import (
	"golang.org/x/text/language"
)

const (
	English = "en"
	Arabic  = "ar"
)

var translations = map[string]map[string]string{
	English: {
		"app_name":   "Tounfite Souk",
		"welcome":    "Welcome to Tounfite Souk",
		"register":   "Register",
		"login":      "Login",
		"logout":     "Logout",
		"add_item":   "Add Item",
		"my_account": "My Account",
		"items":      "Items",
		"messages":   "Messages",
		"contact":    "Contact Seller",
		"my_items":   "My Items",
	},
	Arabic: {
		"app_name":   "سوق تونفيت",
		"welcome":    "مرحبا بكم في سوق تونفيت",
		"register":   "تسجيل",
		"login":      "تسجيل الدخول",
		"logout":     "تسجيل الخروج",
		"add_item":   "إضافة منتج",
		"my_account": "حسابي",
		"items":      "المنتجات",
		"messages":   "الرسائل",
		"contact":    "اتصل بالبائع",
		"my_items":   "منتجاتي",
	},
}

// supported is in matcher preference order.
var supported = []string{English, Arabic}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

// Supported reports whether lang has a dictionary.
func Supported(lang string) bool {
	_, ok := translations[lang]
	return ok
}

// Translate looks key up in lang, then English, then returns key itself.
func Translate(lang, key string) string {
	if s, ok := translations[lang][key]; ok {
		return s
	}
	if s, ok := translations[English][key]; ok {
		return s
	}
	return key
}

// Dir is the text direction for lang.
func Dir(lang string) string {
	if lang == Arabic {
		return "rtl"
	}
	return "ltr"
}

// Negotiate picks the best supported language from an Accept-Language
// header, or def when nothing matches.
func Negotiate(acceptLanguage, def string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return def
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return def
	}
	return supported[idx]
}
