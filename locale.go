// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import "fmt"

// Locale is the language code of a hash table entry. Values are Windows LANGIDs.
type Locale uint16

const (
	LocaleDefault    Locale = 0x0000 // Neutral
	LocaleChinese    Locale = 0x0404
	LocaleCzech      Locale = 0x0405
	LocaleGerman     Locale = 0x0407
	LocaleEnglish    Locale = 0x0409
	LocaleSpanish    Locale = 0x040A
	LocaleFrench     Locale = 0x040C
	LocaleItalian    Locale = 0x0410
	LocaleJapanese   Locale = 0x0411
	LocaleKorean     Locale = 0x0412
	LocalePolish     Locale = 0x0415
	LocalePortuguese Locale = 0x0416
	LocaleRussian    Locale = 0x0419
	LocaleEnglishUK  Locale = 0x0809
)

var localeNames = map[Locale]string{
	LocaleDefault:    "neutral",
	LocaleChinese:    "zhTW",
	LocaleCzech:      "csCZ",
	LocaleGerman:     "deDE",
	LocaleEnglish:    "enUS",
	LocaleSpanish:    "esES",
	LocaleFrench:     "frFR",
	LocaleItalian:    "itIT",
	LocaleJapanese:   "jaJP",
	LocaleKorean:     "koKR",
	LocalePolish:     "plPL",
	LocalePortuguese: "ptBR",
	LocaleRussian:    "ruRU",
	LocaleEnglishUK:  "enGB",
}

// String returns the locale tag, or the code in hex for unknown locales.
func (l Locale) String() string {
	if name, ok := localeNames[l]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(l))
}
