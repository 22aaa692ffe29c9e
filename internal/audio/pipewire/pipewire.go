// Package pipewire implements the audio boundary on top of the pw-dump
// and pw-cli command line tools. Node state is read by dumping the graph
// and filtering for nodes by name; writes go through pw-cli set-param.
package pipewire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/dokzlo13/lightwire/internal/audio"
	"github.com/dokzlo13/lightwire/internal/light"
)

// Config holds PipeWire tooling settings.
type Config struct {
	// CallTimeout bounds every pw-dump/pw-cli invocation.
	CallTimeout time.Duration
}

// DefaultCallTimeout bounds tool invocations when no timeout is configured.
const DefaultCallTimeout = 3 * time.Second

// nodeState is the slice of a pw-dump entry we care about.
type nodeState struct {
	id     int
	name   string
	volume float64
	muted  bool
}

// dump runs pw-dump and extracts all audio nodes with a node.name.
func dump(ctx context.Context, timeout time.Duration) ([]nodeState, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "pw-dump").Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: pw-dump: %v", light.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: pw-dump: %v", light.ErrAudioConnection, err)
	}
	return parseDump(out)
}

// parseDump pulls node name, volume and mute out of pw-dump JSON.
func parseDump(raw []byte) ([]nodeState, error) {
	var objects []struct {
		ID   int    `json:"id"`
		Type string `json:"type"`
		Info struct {
			Props map[string]any `json:"props"`
			Params struct {
				Props []struct {
					Volume *float64 `json:"volume"`
					Mute   *bool    `json:"mute"`
				} `json:"Props"`
			} `json:"params"`
		} `json:"info"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), &objects); err != nil {
		return nil, fmt.Errorf("%w: pw-dump output: %v", light.ErrProtocol, err)
	}

	var nodes []nodeState
	for _, obj := range objects {
		if obj.Type != "PipeWire:Interface:Node" {
			continue
		}
		name, _ := obj.Info.Props["node.name"].(string)
		if name == "" {
			continue
		}
		node := nodeState{id: obj.ID, name: name, volume: 1.0}
		for _, props := range obj.Info.Params.Props {
			if props.Volume != nil {
				node.volume = *props.Volume
			}
			if props.Mute != nil {
				node.muted = *props.Mute
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func findNode(nodes []nodeState, name string) (nodeState, error) {
	for _, n := range nodes {
		if n.name == name {
			return n, nil
		}
	}
	return nodeState{}, fmt.Errorf("%w: %q", light.ErrAudioNodeNotFound, name)
}

// Controller addresses one PipeWire node by name.
type Controller struct {
	nodeName string
	timeout  time.Duration
}

// NewController creates a controller for the named node.
func NewController(nodeName string, cfg Config) *Controller {
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}
	return &Controller{nodeName: nodeName, timeout: timeout}
}

func (c *Controller) NodeName() string { return c.nodeName }

func (c *Controller) GetVolume(ctx context.Context) (audio.Volume, error) {
	nodes, err := dump(ctx, c.timeout)
	if err != nil {
		return audio.Volume{}, err
	}
	node, err := findNode(nodes, c.nodeName)
	if err != nil {
		return audio.Volume{}, err
	}
	v := audio.NewVolume(node.volume)
	v.Muted = node.muted
	return v, nil
}

func (c *Controller) SetVolume(ctx context.Context, value float64) error {
	return c.setProps(ctx, fmt.Sprintf("{ volume: %s }", strconv.FormatFloat(value, 'f', -1, 64)))
}

func (c *Controller) SetMuted(ctx context.Context, muted bool) error {
	return c.setProps(ctx, fmt.Sprintf("{ mute: %t }", muted))
}

func (c *Controller) setProps(ctx context.Context, props string) error {
	nodes, err := dump(ctx, c.timeout)
	if err != nil {
		return err
	}
	node, err := findNode(nodes, c.nodeName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pw-cli", "set-param", strconv.Itoa(node.id), "Props", props)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: pw-cli: %v", light.ErrTimeout, err)
		}
		return fmt.Errorf("%w: pw-cli: %v: %s", light.ErrAudioConnection, err, bytes.TrimSpace(out))
	}
	return nil
}
