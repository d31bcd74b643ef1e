// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"

	xnet "github.com/ManuGH/hlsvault/internal/platform/net"
)

// ConfigChecker reports unhealthy when a required base URL is empty or invalid.
type ConfigChecker struct {
	name  string
	value string
}

// NewConfigChecker creates a checker for a required base URL setting.
func NewConfigChecker(name, value string) *ConfigChecker {
	return &ConfigChecker{name: name, value: value}
}

func (c *ConfigChecker) Name() string { return c.name }

func (c *ConfigChecker) Check(context.Context) CheckResult {
	if c.value == "" {
		return CheckResult{Status: StatusUnhealthy, Error: "not configured"}
	}
	if _, ok := xnet.ParseBaseURL(c.value); !ok {
		return CheckResult{Status: StatusUnhealthy, Error: "not an absolute http(s) URL"}
	}
	return CheckResult{Status: StatusHealthy, Message: "configured"}
}

// FuncChecker adapts a probe function. A failing optional dependency only
// degrades the service.
type FuncChecker struct {
	name     string
	critical bool
	probe    func(ctx context.Context) error
}

// NewFuncChecker wraps probe under name.
func NewFuncChecker(name string, critical bool, probe func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, critical: critical, probe: probe}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	if err := c.probe(ctx); err != nil {
		status := StatusDegraded
		if c.critical {
			status = StatusUnhealthy
		}
		return CheckResult{Status: status, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}
