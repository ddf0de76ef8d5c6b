package toolchain

import (
	"context"

	"huffdbg/internal/logging"
	"huffdbg/internal/tactile"
)

// Hevm drives `hevm exec` in create mode.
type Hevm struct {
	Binary string
	Exec   tactile.Executor
	Limits *tactile.ResourceLimits
}

// CreateArgs returns the argument list for a create pass.
func CreateArgs(req CreateRequest) []string {
	args := []string{
		"exec",
		"--code", req.Code,
		"--address", req.Address,
		"--create",
		"--caller", req.Caller,
		"--gas", req.Gas,
	}
	if req.StatePath != "" {
		args = append(args, "--state", req.StatePath)
	}
	return args
}

// Create implements Simulator.
func (h *Hevm) Create(ctx context.Context, req CreateRequest) (string, error) {
	timer := logging.StartTimer(logging.CategoryDeploy, "hevm create")
	defer timer.Stop()

	res, err := run(ctx, h.Exec, h.Binary, tactile.Command{
		Binary:    h.Binary,
		Arguments: CreateArgs(req),
		Limits:    h.Limits,
	})
	if err != nil {
		return "", err
	}

	code := lastLine(res.Stdout)
	if code == "" {
		return "", &ToolError{Tool: h.Binary, Output: res.Output(), Reason: "no runtime code in output"}
	}
	logging.DeployDebug("Create at %s returned %d hex characters (state=%q)", req.Address, len(code), req.StatePath)
	return with0x(code), nil
}
