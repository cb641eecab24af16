package bpe

import (
	"strings"
	"unicode/utf8"
)

// byteRunes maps every byte to a printable rune, following the GPT-2 byte table: bytes that are
// already printable map to themselves, the rest take code points from 256 upward in byte order.
// Byte-alphabet symbols are therefore always valid UTF-8 and survive JSON.
var byteRunes, runeBytes = buildByteTable()

func buildByteTable() ([256]rune, map[rune]byte) {
	var table [256]rune
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}

	next := rune(256)
	for b := 0; b < 256; b++ {
		if printable(b) {
			table[b] = rune(b)
		} else {
			table[b] = next
			next++
		}
	}

	reverse := make(map[rune]byte, 256)
	for b, r := range table {
		reverse[r] = byte(b)
	}
	return table, reverse
}

// split calls yield for every initial symbol of word, with the number of input bytes it covers.
// The last symbol carries marker. In the rune alphabet each invalid UTF-8 byte is one U+FFFD
// symbol of width 1.
func (a Alphabet) split(word, marker string, yield func(symbol string, width int)) {
	switch a {
	case AlphabetBytes:
		for i := 0; i < len(word); i++ {
			sym := string(byteRunes[word[i]])
			if i == len(word)-1 {
				sym += marker
			}
			yield(sym, 1)
		}
	default:
		for i := 0; i < len(word); {
			r, size := utf8.DecodeRuneInString(word[i:])
			sym := word[i : i+size]
			if r == utf8.RuneError && size == 1 {
				// Invalid bytes become U+FFFD so every symbol is valid UTF-8 and survives JSON.
				sym = string(utf8.RuneError)
			}
			if i+size == len(word) {
				sym += marker
			}
			yield(sym, size)
			i += size
		}
	}
}

// surface returns the raw text a symbol stands for, without any end-of-word marker.
func (a Alphabet) surface(symbol string) string {
	if a != AlphabetBytes {
		return symbol
	}

	var b strings.Builder
	b.Grow(len(symbol))
	for _, r := range symbol {
		if raw, ok := runeBytes[r]; ok {
			b.WriteByte(raw)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isUnit reports whether symbol is a single alphabet unit, optionally followed by marker.
func (a Alphabet) isUnit(symbol, marker string) bool {
	if marker != "" {
		symbol = strings.TrimSuffix(symbol, marker)
	}
	r, size := utf8.DecodeRuneInString(symbol)
	if size == 0 || size != len(symbol) {
		return false
	}
	if a == AlphabetBytes {
		_, ok := runeBytes[r]
		return ok
	}
	return true
}
