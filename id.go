package reactor

import "github.com/seanchatmangpt/reactor/id"

// ID is the primary identifier type for all reactor entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
