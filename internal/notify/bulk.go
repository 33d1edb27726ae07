package notify

import (
	"context"

	"github.com/backmassage/symguard/internal/arr"
	"github.com/backmassage/symguard/internal/config"
)

// Bulk sends each enabled, reachable service its rescan commands once,
// regardless of how many files were deleted.
func (n *Notifier) Bulk(ctx context.Context) Summary {
	sum := Summary{Mode: config.NotifyBulk}
	for _, svc := range n.services {
		if ctx.Err() != nil {
			sum.Interrupted = true
			n.log.Warn("Notification interrupted")
			break
		}
		sum.add(n.bulkService(ctx, svc.Name))
	}
	n.log.Info("Bulk notification: %d command(s) sent, %d failed", sum.Sent, sum.Failed)
	return sum
}

func (n *Notifier) bulkService(ctx context.Context, name string) ServiceResult {
	res := ServiceResult{Service: name}

	cmds, ok := BulkCommands[name]
	if !ok {
		res.Status = StatusUnsupported
		n.log.Debug("%s: no bulk commands known", name)
		return res
	}

	c, st := n.client(name)
	if c == nil {
		res.Status = st
		if st == StatusNoAPIKey {
			n.log.Warn("%s: no API key configured", name)
		} else {
			n.log.Debug("%s: disabled", name)
		}
		return res
	}

	if _, err := c.Status(ctx); err != nil {
		res.Status = StatusUnreachable
		res.Error = err.Error()
		n.log.Warn("%s: unreachable: %v", name, err)
		return res
	}

	for _, cmd := range cmds {
		out := CommandOutcome{Name: cmd}
		if err := n.send(ctx, c, arr.Command{Name: cmd}); err != nil {
			out.Error = err.Error()
			n.log.Warn("%s: %s failed: %v", name, cmd, err)
		} else {
			n.log.Success("%s: %s queued", name, cmd)
		}
		res.Commands = append(res.Commands, out)
		if ctx.Err() != nil {
			break
		}
	}
	res.Status = statusFor(res.Commands)
	return res
}
