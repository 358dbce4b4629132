package app

import (
	"github.com/vk/burstfn/internal/handlers"
	"github.com/vk/burstfn/modules/env_vars"
	"github.com/vk/burstfn/modules/http_client"
	"github.com/vk/burstfn/modules/print"
	"github.com/vk/burstfn/modules/s3"
	"github.com/vk/burstfn/modules/socketio"
)

// coreModules returns the extension modules compiled into the burstfn
// binary. Modules may hold resources, so each App gets fresh instances.
func coreModules() []handlers.Module {
	return []handlers.Module{
		&env_vars.Module{},
		&print.Module{},
		&http_client.Module{},
		&s3.Module{},
		&socketio.Module{},
	}
}
