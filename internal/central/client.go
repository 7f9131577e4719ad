package central

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/executor"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultPollInterval is how long a worker waits before claiming a task again
// while another worker runs it.
const DefaultPollInterval = 5 * time.Second

type claimReply struct {
	granted bool
	state   State
}

// Client talks to a central scheduler and implements executor.Claimer.
type Client struct {
	io           *socket.Socket
	worker       string
	PollInterval time.Duration

	mu      sync.Mutex
	waiting map[string]chan claimReply
}

// Dial connects to the central scheduler at rawURL as worker.
func Dial(ctx context.Context, rawURL, worker string) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("central", rawURL, "worker", worker)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse central scheduler URL: %w", err)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	c := &Client{
		io:           io,
		worker:       worker,
		PollInterval: DefaultPollInterval,
		waiting:      make(map[string]chan claimReply),
	}
	io.On(types.EventName("claim_result"), c.onClaimResult)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to central scheduler", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("central scheduler connection failed: %w", err)
		}
		return c, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for central scheduler connection")
	case <-time.After(15 * time.Second):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after 15s waiting for central scheduler connection")
	}
}

func (c *Client) onClaimResult(data ...any) {
	if len(data) == 0 {
		return
	}
	m, ok := data[0].(map[string]any)
	if !ok {
		return
	}
	taskID, _ := m["task"].(string)
	granted, _ := m["granted"].(bool)
	state, _ := m["state"].(string)

	c.mu.Lock()
	ch, ok := c.waiting[taskID]
	delete(c.waiting, taskID)
	c.mu.Unlock()
	if ok {
		ch <- claimReply{granted: granted, state: State(state)}
	}
}

// Acquire implements executor.Claimer. It polls while another worker runs
// the task.
func (c *Client) Acquire(ctx context.Context, taskID string) (executor.Grant, error) {
	logger := ctxlog.FromContext(ctx)
	for {
		reply, err := c.claim(ctx, taskID)
		if err != nil {
			return 0, err
		}
		switch {
		case reply.granted:
			return executor.Granted, nil
		case reply.state == StateDone:
			return executor.AlreadyDone, nil
		}

		logger.Debug("Task is running on another worker, waiting.", "task", taskID)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
}

func (c *Client) claim(ctx context.Context, taskID string) (claimReply, error) {
	ch := make(chan claimReply, 1)
	c.mu.Lock()
	c.waiting[taskID] = ch
	c.mu.Unlock()

	c.io.Emit("claim", map[string]any{"task": taskID, "worker": c.worker})

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		c.forget(taskID)
		return claimReply{}, ctx.Err()
	case <-time.After(30 * time.Second):
		c.forget(taskID)
		return claimReply{}, fmt.Errorf("timed out waiting for claim_result for %s", taskID)
	}
}

func (c *Client) forget(taskID string) {
	c.mu.Lock()
	delete(c.waiting, taskID)
	c.mu.Unlock()
}

// Release implements executor.Claimer.
func (c *Client) Release(ctx context.Context, taskID string, runErr error) error {
	if !c.io.Connected() {
		return fmt.Errorf("central scheduler connection lost")
	}
	if runErr != nil {
		c.io.Emit("failed", map[string]any{"task": taskID, "worker": c.worker, "error": runErr.Error()})
		return nil
	}
	c.io.Emit("done", map[string]any{"task": taskID, "worker": c.worker})
	return nil
}

// Close disconnects from the central scheduler.
func (c *Client) Close() {
	c.io.Disconnect()
}
