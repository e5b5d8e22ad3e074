package SheetDB

import (
	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/db"
	"github.com/nickyhof/SheetDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
	options     []db.Option
}

// Open wraps a persistence layer. The options are applied to every engine
// the instance hands out.
func Open(persistence *ps.Persistence, opts ...db.Option) *Instance {
	return &Instance{
		Persistence: persistence,
		options:     opts,
	}
}

// Engine returns an engine whose writes are committed as identity.
func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	return db.NewEngine(instance.Persistence.Sheets(identity), instance.options...)
}
