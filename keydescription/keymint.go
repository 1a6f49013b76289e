package keydescription

import "math/big"

// Well-known KeyMint tag 702 (origin) values relevant to constraint
// checking. KeyMint defines more than these, but GENERATED is the only one
// the constraint engine's default policy cares about.
var (
	OriginGenerated = big.NewInt(0)
	OriginImported  = big.NewInt(2)
)
