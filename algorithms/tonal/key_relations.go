package tonal

// Relative returns the relative major/minor key: a minor third down from a
// major tonic, a minor third up from a minor one.
func (k Key) Relative() Key {
	if k.Mode == Major {
		return Key{Tonic: k.Tonic.Transpose(-3), Mode: Minor}
	}
	return Key{Tonic: k.Tonic.Transpose(3), Mode: Major}
}

// Parallel returns the key on the same tonic in the other mode
func (k Key) Parallel() Key {
	if k.Mode == Major {
		return Key{Tonic: k.Tonic, Mode: Minor}
	}
	return Key{Tonic: k.Tonic, Mode: Major}
}

// Dominant returns the key a fifth above, same mode
func (k Key) Dominant() Key {
	return Key{Tonic: k.Tonic.Transpose(7), Mode: k.Mode}
}

// Subdominant returns the key a fifth below, same mode
func (k Key) Subdominant() Key {
	return Key{Tonic: k.Tonic.Transpose(-7), Mode: k.Mode}
}

// KeyRelations groups the closely related keys of a key
type KeyRelations struct {
	Relative    Key `json:"relative" yaml:"relative"`
	Parallel    Key `json:"parallel" yaml:"parallel"`
	Dominant    Key `json:"dominant" yaml:"dominant"`
	Subdominant Key `json:"subdominant" yaml:"subdominant"`
}

// Relations returns the relative, parallel, dominant and subdominant keys
func (k Key) Relations() KeyRelations {
	return KeyRelations{
		Relative:    k.Relative(),
		Parallel:    k.Parallel(),
		Dominant:    k.Dominant(),
		Subdominant: k.Subdominant(),
	}
}

// IsRelated reports whether other is k itself or one of its closely related keys
func (k Key) IsRelated(other Key) bool {
	if k == other {
		return true
	}
	r := k.Relations()
	return other == r.Relative || other == r.Parallel || other == r.Dominant || other == r.Subdominant
}
