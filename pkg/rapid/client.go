// Package rapid is a thin client for the RAPID web service shim running
// on the vendor robot controller. It forwards program start/stop, status,
// digital IO and event log calls and wraps transport errors; there is no
// logic here beyond that.
package rapid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/armkit/go-irc5/internal/httpc"
)

// Client talks to one controller's RAPID web service.
type Client struct {
	BaseURL string

	http *http.Client
}

// NewClient creates a client for the RAPID service at baseURL,
// e.g. "http://192.168.11.58:80".
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		http:    httpc.Client,
	}
}

// Start starts RAPID program execution. cycle is one of the Cycle*
// constants; empty means CycleAsIs. resetPP rewinds the program pointer
// to main first.
func (c *Client) Start(cycle string, resetPP bool) error {
	if cycle == "" {
		cycle = CycleAsIs
	}
	if resetPP {
		if err := c.post("/rapid/resetpp", nil); err != nil {
			return fmt.Errorf("reset program pointer: %w", err)
		}
	}
	body := map[string]string{"cycle": cycle}
	if err := c.post("/rapid/start", body); err != nil {
		return fmt.Errorf("rapid start: %w", err)
	}
	return nil
}

// Stop stops RAPID program execution.
func (c *Client) Stop() error {
	if err := c.post("/rapid/stop", nil); err != nil {
		return fmt.Errorf("rapid stop: %w", err)
	}
	return nil
}

// Status returns the execution, operation mode and controller state.
func (c *Client) Status() (Status, error) {
	var exec executionState
	if err := c.get("/rapid/execution", &exec); err != nil {
		return Status{}, fmt.Errorf("get execution state: %w", err)
	}

	var opmode struct {
		OpMode string `json:"opmode"`
	}
	if err := c.get("/panel/opmode", &opmode); err != nil {
		return Status{}, fmt.Errorf("get operation mode: %w", err)
	}

	var ctrl struct {
		CtrlState string `json:"ctrlstate"`
	}
	if err := c.get("/panel/ctrlstate", &ctrl); err != nil {
		return Status{}, fmt.Errorf("get controller state: %w", err)
	}

	return Status{
		Running:   exec.CtrlExecState == "running",
		Cycle:     exec.Cycle,
		OpMode:    opmode.OpMode,
		CtrlState: ctrl.CtrlState,
	}, nil
}

// GetDigitalIO reads the logical value of a digital signal.
func (c *Client) GetDigitalIO(signal string) (int, error) {
	var out struct {
		LValue int `json:"lvalue"`
	}
	if err := c.get("/iosystem/signals/"+url.PathEscape(signal), &out); err != nil {
		return 0, fmt.Errorf("get digital io %q: %w", signal, err)
	}
	return out.LValue, nil
}

// SetDigitalIO writes the logical value of a digital signal.
func (c *Client) SetDigitalIO(signal string, value int) error {
	body := map[string]int{"lvalue": value}
	if err := c.post("/iosystem/signals/"+url.PathEscape(signal), body); err != nil {
		return fmt.Errorf("set digital io %q: %w", signal, err)
	}
	return nil
}

// ReadEventLog returns the controller's event log messages.
func (c *Client) ReadEventLog() ([]EventLogMessage, error) {
	var out struct {
		Messages []EventLogMessage `json:"messages"`
	}
	if err := c.get("/elog", &out); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return out.Messages, nil
}

func (c *Client) get(path string, out any) error {
	resp, err := c.http.Get(c.BaseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) post(path string, body any) error {
	data := []byte("{}")
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	resp, err := c.http.Post(c.BaseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
