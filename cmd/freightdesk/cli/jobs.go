package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/freightdesk/freightdesk/internal/shipment"
	"github.com/freightdesk/freightdesk/jobs"
)

// Enqueuer submits tasks to the queue.
type Enqueuer interface {
	Trigger(ctx context.Context, name string, retention time.Duration) (*asynq.TaskInfo, error)
}

// Inspector reports queue state.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Counters reports the last reserved document number per prefix.
type Counters interface {
	Peek(ctx context.Context, prefix string) (int64, error)
}

// JobsCLI implements the "jobs" subcommand.
type JobsCLI struct {
	enqueuer  Enqueuer
	inspector Inspector
	counters  Counters
	retention time.Duration
	out       io.Writer
}

// NewJobsCLI wires the subcommand. counters may be nil.
func NewJobsCLI(enqueuer Enqueuer, inspector Inspector, counters Counters, retention time.Duration, out io.Writer) *JobsCLI {
	return &JobsCLI{enqueuer: enqueuer, inspector: inspector, counters: counters, retention: retention, out: out}
}

// Run executes "trigger <task>" or "stats".
func (c *JobsCLI) Run(ctx context.Context, args []string) error {
	if c == nil || c.out == nil {
		return errors.New("jobs cli: not configured")
	}
	if len(args) == 0 {
		return c.usage()
	}
	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			return c.usage()
		}
		if c.enqueuer == nil {
			return errors.New("jobs cli: client not configured")
		}
		info, err := c.enqueuer.Trigger(ctx, args[1], c.retention)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case "stats":
		if c.inspector == nil {
			return errors.New("jobs cli: inspector not configured")
		}
		info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.out, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived); err != nil {
			return err
		}
		return c.counterStats(ctx)
	default:
		return c.usage()
	}
}

func (c *JobsCLI) counterStats(ctx context.Context) error {
	if c.counters == nil {
		return nil
	}
	for _, prefix := range []string{shipment.PrefixReceipt, shipment.PrefixPayment} {
		last, err := c.counters.Peek(ctx, prefix)
		if err != nil {
			return fmt.Errorf("docno counter %s: %w", prefix, err)
		}
		if _, err := fmt.Fprintf(c.out, "docno prefix=%s reserved=%d\n", prefix, last); err != nil {
			return err
		}
	}
	return nil
}

func (c *JobsCLI) usage() error {
	return fmt.Errorf("usage: freightdesk jobs trigger <%s> | freightdesk jobs stats", strings.Join(jobs.TaskNames(), "|"))
}
