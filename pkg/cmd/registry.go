// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/deskflow/pkg/actions/discount"
	"github.com/dukex/deskflow/pkg/actions/email"
	"github.com/dukex/deskflow/pkg/actions/exchange"
	"github.com/dukex/deskflow/pkg/actions/notification"
	"github.com/dukex/deskflow/pkg/actions/refund"
	"github.com/dukex/deskflow/pkg/actions/restock"
	"github.com/dukex/deskflow/pkg/actions/tag"
	"github.com/dukex/deskflow/pkg/registry"
)

func registerActionPlugins(reg *registry.Registry, pluginsPath string) {
	if pluginsPath == "" {
		return
	}

	actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}
}

// RegisterNativeActions registers the built-in action kinds.
func RegisterNativeActions(reg *registry.Registry) {
	reg.RegisterAction(refund.NewActionFactory())
	reg.RegisterAction(exchange.NewActionFactory())
	reg.RegisterAction(email.NewActionFactory())
	reg.RegisterAction(discount.NewActionFactory())
	reg.RegisterAction(tag.NewActionFactory())
	reg.RegisterAction(notification.NewActionFactory())
	reg.RegisterAction(restock.NewActionFactory())
}

// NewRegistry registers plugins first so that a native kind with the same ID wins.
func NewRegistry(log *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerActionPlugins(reg, pluginsPath)
	RegisterNativeActions(reg)

	return reg
}
