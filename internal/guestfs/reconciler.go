// Package guestfs reconciles directories inside a VM's guest filesystem
// through the vCenter guest operations API.
package guestfs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/faize-ai/guestdir/internal/logging"
	"github.com/faize-ai/guestdir/internal/vmrest"
)

const (
	directoriesTemplate = "/api/vcenter/vm/{vm}/guest/filesystem/directories?action="
	filesystemGet       = "/api/vcenter/vm/{vm}/guest/filesystem?action=get"
)

// endpoint describes one action of the directories resource.
type endpoint struct {
	action string
	format vmrest.PayloadFormat
}

var endpoints = map[vmrest.Operation]endpoint{
	vmrest.OpCreate: {
		action: "create",
		format: vmrest.PayloadFormat{
			Query: map[string]string{},
			Body: map[string]string{
				"create_parents": "create_parents",
				"credentials":    "credentials",
				"path":           "path",
			},
			Path: map[string]string{"vm": "vm"},
		},
	},
	vmrest.OpCreateTemporary: {
		action: "createTemporary",
		format: vmrest.PayloadFormat{
			Query: map[string]string{},
			Body: map[string]string{
				"credentials": "credentials",
				"parent_path": "parent_path",
				"prefix":      "prefix",
				"suffix":      "suffix",
			},
			Path: map[string]string{"vm": "vm"},
		},
	},
	vmrest.OpDelete: {
		action: "delete",
		format: vmrest.PayloadFormat{
			Query: map[string]string{},
			Body: map[string]string{
				"credentials": "credentials",
				"path":        "path",
				"recursive":   "recursive",
			},
			Path: map[string]string{"vm": "vm"},
		},
	},
	vmrest.OpMove: {
		action: "move",
		format: vmrest.PayloadFormat{
			Query: map[string]string{},
			Body: map[string]string{
				"credentials": "credentials",
				"new_path":    "new_path",
				"path":        "path",
			},
			Path: map[string]string{"vm": "vm"},
		},
	},
}

func (e endpoint) template() string {
	return directoriesTemplate + e.action
}

type handler func(r *Reconciler, ctx context.Context, params vmrest.Params) (*vmrest.Result, error)

var handlers = map[State]handler{
	StatePresent:         (*Reconciler).create,
	StateAbsent:          (*Reconciler).delete,
	StateMove:            (*Reconciler).move,
	StateCreateTemporary: (*Reconciler).createTemporary,
}

// Reconciler converges guest directories to a declared state. It issues at
// most one request at a time and holds no state between calls.
type Reconciler struct {
	client vmrest.Requester
}

// NewReconciler returns a Reconciler sending its requests through client.
func NewReconciler(client vmrest.Requester) *Reconciler {
	return &Reconciler{client: client}
}

// Reconcile performs the action req.State calls for and reports whether the
// guest changed. A 500 answer is returned as *vmrest.RemoteFailure; other
// HTTP errors come back as a failed Result. An empty State means present;
// req itself is left untouched.
func (r *Reconciler) Reconcile(ctx context.Context, req *Request) (*vmrest.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	state := req.State
	if state == "" {
		state = StatePresent
	}
	h, ok := handlers[state]
	if !ok {
		return nil, fmt.Errorf("unsupported state %q", state)
	}

	logging.S().Debugf("reconciling %s on %s (state=%s)", req.Path, req.VM, state)
	return h(r, ctx, req.Params())
}

// create makes sure the directory exists. An existing directory is reported
// unchanged without calling create. A file or symlink at the path does not
// count, so create runs and the server's conflict answer becomes the result.
func (r *Reconciler) create(ctx context.Context, params vmrest.Params) (*vmrest.Result, error) {
	lookup, err := r.lookup(params)
	if err != nil {
		return nil, err
	}

	existing, err := vmrest.Exists(ctx, r.client, lookup)
	if err != nil {
		return nil, err
	}
	if isDirectory(existing) {
		return vmrest.UpdateChangedFlag(existing, http.StatusOK, vmrest.OpGet), nil
	}
	if existing != nil {
		// something else occupies the path; create reports the conflict
		logging.S().Debugf("%s exists but is not a directory", params["path"])
	}

	ep := endpoints[vmrest.OpCreate]
	url, err := vmrest.BuildURL(ep.template(), params)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(ctx, http.MethodPost, url, vmrest.PreparePayload(params, ep.format))
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusInternalServerError {
		return nil, &vmrest.RemoteFailure{Status: resp.Status, Body: resp.Text}
	}

	body := resp.Body
	if resp.Status == http.StatusOK || resp.Status == http.StatusCreated {
		if id := ExtractID(body); id != "" {
			info, err := vmrest.GetDeviceInfo(ctx, r.client, lookup, id)
			if err != nil {
				return nil, err
			}
			if info != nil {
				body = info
			}
		}
	}

	return vmrest.UpdateChangedFlag(body, resp.Status, vmrest.OpCreate), nil
}

// createTemporary always creates a new directory.
func (r *Reconciler) createTemporary(ctx context.Context, params vmrest.Params) (*vmrest.Result, error) {
	return r.mutate(ctx, vmrest.OpCreateTemporary, params)
}

// delete removes the directory. A missing directory is not special-cased;
// the server's answer decides the result.
func (r *Reconciler) delete(ctx context.Context, params vmrest.Params) (*vmrest.Result, error) {
	return r.mutate(ctx, vmrest.OpDelete, params)
}

func (r *Reconciler) move(ctx context.Context, params vmrest.Params) (*vmrest.Result, error) {
	return r.mutate(ctx, vmrest.OpMove, params)
}

// mutate issues a single action call without an idempotence probe.
func (r *Reconciler) mutate(ctx context.Context, op vmrest.Operation, params vmrest.Params) (*vmrest.Result, error) {
	ep := endpoints[op]
	if err := r.resolveSubdevice(ctx, ep.template(), params); err != nil {
		return nil, err
	}

	url, err := vmrest.BuildURL(ep.template(), params)
	if err != nil {
		return nil, err
	}
	url = vmrest.WithQuery(url, vmrest.GenArgs(params, ep.format.QueryKeys()))

	resp, err := r.client.Do(ctx, http.MethodPost, url, vmrest.PreparePayload(params, ep.format))
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusInternalServerError {
		return nil, &vmrest.RemoteFailure{Status: resp.Status, Body: resp.Text}
	}

	return vmrest.UpdateChangedFlag(resp.Body, resp.Status, op), nil
}

// resolveSubdevice fills a dependent sub-resource identifier the template
// needs but params lack, by probing for the resource.
func (r *Reconciler) resolveSubdevice(ctx context.Context, template string, params vmrest.Params) error {
	sub := vmrest.SubdeviceType(template)
	if sub == "" || params[sub] != nil {
		return nil
	}

	lookup, err := r.lookup(params)
	if err != nil {
		return err
	}
	existing, err := vmrest.Exists(ctx, r.client, lookup)
	if err != nil {
		return err
	}
	if existing != nil {
		params[sub] = existing["id"]
	}
	return nil
}

// isDirectory reports whether a lookup envelope describes a directory.
func isDirectory(env map[string]any) bool {
	v, ok := env["value"].(map[string]any)
	return ok && v["type"] == "DIRECTORY"
}

// lookup addresses a guest directory by path.
func (r *Reconciler) lookup(params vmrest.Params) (vmrest.Lookup, error) {
	url, err := vmrest.BuildURL(filesystemGet, params)
	if err != nil {
		return vmrest.Lookup{}, err
	}
	return vmrest.Lookup{
		Path: url,
		Body: map[string]any{
			"credentials": params["credentials"],
			"path":        params["path"],
		},
		IDKey: "path",
	}, nil
}
