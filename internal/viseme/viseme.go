// Package viseme maps characters to the mouth-shape morph targets used for
// lip-sync. Shapes are named after the Oculus viseme morph targets present on
// Ready Player Me style avatars.
package viseme

// Shape names a viseme morph target on the avatar model.
type Shape string

const (
	ShapeAA Shape = "viseme_aa"
	ShapeE  Shape = "viseme_E"
	ShapeI  Shape = "viseme_I"
	ShapeO  Shape = "viseme_O"
	ShapeU  Shape = "viseme_U"
	ShapePP Shape = "viseme_PP"
	ShapeFF Shape = "viseme_FF"
	ShapeTH Shape = "viseme_TH"
	ShapeDD Shape = "viseme_DD"
	ShapeKK Shape = "viseme_kk"
	ShapeCH Shape = "viseme_CH"
	ShapeSS Shape = "viseme_SS"
	ShapeNN Shape = "viseme_nn"
	ShapeRR Shape = "viseme_RR"
)

// Map maps a single uppercase character to a viseme shape. Characters without
// an entry (spaces, punctuation, digits) produce no viseme; the mouth decays
// toward neutral on its own.
type Map map[rune]Shape

// Default returns the letter-to-viseme map. Letters group by rough
// articulation: vowels to their open shapes, consonants to the closest
// labial/dental/velar shape.
func Default() Map {
	return Map{
		'A': ShapeAA,
		'B': ShapePP,
		'C': ShapeKK,
		'D': ShapeDD,
		'E': ShapeE,
		'F': ShapeFF,
		'G': ShapeKK,
		'H': ShapeAA, // open mouth, closest to a glottal
		'I': ShapeI,
		'J': ShapeCH,
		'K': ShapeKK,
		'L': ShapeNN,
		'M': ShapePP,
		'N': ShapeNN,
		'O': ShapeO,
		'P': ShapePP,
		'Q': ShapeKK,
		'R': ShapeRR,
		'S': ShapeSS,
		'T': ShapeDD,
		'U': ShapeU,
		'V': ShapeFF,
		'W': ShapeU, // rounded lips like 'u'
		'X': ShapeKK,
		'Y': ShapeI,
		'Z': ShapeSS,
	}
}

// Lookup returns the shape for a character, or false when the character has
// no mapped viseme.
func (m Map) Lookup(r rune) (Shape, bool) {
	s, ok := m[r]
	return s, ok
}
