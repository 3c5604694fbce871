package actions

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/store"
)

var listDirectoryDispatch = action.NewDispatch("actions.ListDirectory")

func init() {
	listDirectoryDispatch.Register(&action.Variant{
		Name: "html",
		Params: []action.Param{
			{Name: "html", Predicate: action.Call(func(interface{}) bool { return true })},
			{Name: "path", Predicate: action.Optional(action.IsA(""))},
		},
		Fn: listDirectoryHTML,
	})
	listDirectoryDispatch.Register(&action.Variant{
		Name: "json",
		Params: []action.Param{
			{Name: "path", Predicate: action.Optional(action.IsA(""))},
		},
		Fn: listDirectoryJSON,
	})
}

// ListDirectory is the "bin.ls" built-in: resolve path (defaulting to the
// store root) and run whatever asset is mounted there, which for a plain
// directory is always the store's own synthesized listing asset.
type ListDirectory struct {
	action.Stateless
}

func (ListDirectory) Help() action.Help {
	return action.Help{
		Description: "read the contents of a directory",
		Args: []action.ArgHelp{
			{Name: "path", Type: "string", Optional: true},
			{Name: "html", Type: "any", Optional: true},
		},
		Returns: "store.ReadDirResult, or an HTML page when html is present",
	}
}

func (l ListDirectory) Execute(asset action.Asset, ctx action.Context, args map[string]interface{}) interface{} {
	return listDirectoryDispatch.Call(asset, ctx, args)
}

func listDirectoryJSON(asset action.Asset, ctx action.Context, args map[string]interface{}) interface{} {
	uc, err := asStoreContext(ctx)
	if err != nil {
		return err
	}
	target, err := uc.Store().Acquire(uc, stringArg(args, "path", ""), nil)
	if err != nil {
		return err
	}
	return store.Update(target, uc, nil)
}

func listDirectoryHTML(asset action.Asset, ctx action.Context, args map[string]interface{}) interface{} {
	result := listDirectoryJSON(asset, ctx, args)
	cr, ok := result.(*action.CallResult)
	if !ok || cr.IsError() {
		return result
	}
	listing, ok := cr.Value().(*store.ReadDirResult)
	if !ok {
		return cr
	}

	var rows strings.Builder
	for _, e := range listing.Entries {
		kind := "file"
		if e.Directory {
			kind = "dir"
		}
		modified := "-"
		if !e.LastModified.IsZero() {
			modified = humanize.Time(e.LastModified)
		}
		rows.WriteString(fmt.Sprintf(
			"<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			e.Name, kind, e.Owner, e.Group, e.Mode, modified,
		))
	}
	page := fmt.Sprintf(
		"<html><body><h1>%s</h1><table>\n%s</table></body></html>",
		listing.Path, rows.String(),
	)
	return action.Valid(page)
}
