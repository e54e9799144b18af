package buildserver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/waabox/opsdeck/internal/domain"
)

// Views lists every view.
func (c *Client) Views(ctx context.Context) ([]View, error) {
	var result struct {
		Views []View `json:"views"`
	}
	if err := c.getJSON(ctx, "list views", "/api/json", url.Values{"tree": {"views[name,url]"}}, &result); err != nil {
		return nil, err
	}
	return result.Views, nil
}

// CreateView creates an empty list view.
func (c *Client) CreateView(ctx context.Context, name, description string) error {
	cfg, err := listViewXML(name, description)
	if err != nil {
		return err
	}
	_, err = c.post(ctx, "create view", "/createView", url.Values{"name": {name}}, []byte(cfg), xmlContentType)
	return err
}

func listViewXML(name, description string) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("hudson.model.ListView")
	root.CreateElement("name").SetText(name)
	root.CreateElement("description").SetText(description)
	root.CreateElement("filterExecutors").SetText("false")
	root.CreateElement("filterQueue").SetText("false")
	root.CreateElement("properties").CreateAttr("class", "hudson.model.View$PropertyList")
	root.CreateElement("jobNames").CreateElement("comparator").CreateAttr("class", "hudson.util.CaseInsensitiveComparator")
	root.CreateElement("jobFilters")
	root.CreateElement("columns")
	root.CreateElement("recurse").SetText("false")
	doc.Indent(2)
	return doc.WriteToString()
}

// ViewConfig returns a view's config.xml.
func (c *Client) ViewConfig(ctx context.Context, name string) (string, error) {
	return c.getText(ctx, "get view config", viewPath(name)+"/config.xml")
}

// ReconfigView replaces a view's config.xml.
func (c *Client) ReconfigView(ctx context.Context, name, configXML string) error {
	_, err := c.post(ctx, "reconfig view", viewPath(name)+"/config.xml", nil, []byte(configXML), xmlContentType)
	return err
}

// DeleteView deletes a view. The jobs it lists are not touched.
func (c *Client) DeleteView(ctx context.Context, name string) error {
	_, err := c.post(ctx, "delete view", viewPath(name)+"/doDelete", nil, nil, "")
	return err
}

// AddJobsToView adds jobs to a list view and returns the resulting membership.
//
// Membership is compared by exact name. Views that keep their members as a
// comma-separated <jobNames> text stay in that form; otherwise each new job
// becomes a <string> child. When nothing is missing no request is sent.
// Jenkins has no revision token for view configs, so before pushing, the
// config is read again and the call fails with domain.ErrConflict if it
// changed in the meantime. A writer racing between that check and the push
// can still be overwritten.
func (c *Client) AddJobsToView(ctx context.Context, view string, jobs []string) (out domain.Outcome[[]string]) {
	start := time.Now()
	defer func() { c.rec.Done("add jobs to view", start, out.Err()) }()

	original, err := c.ViewConfig(ctx, view)
	if err != nil {
		return domain.Fail[[]string](err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(original); err != nil {
		return domain.Fail[[]string](invalidView(view, err.Error()))
	}
	root := doc.Root()
	if root == nil {
		return domain.Fail[[]string](invalidView(view, "empty config"))
	}
	el := root.FindElement(".//jobNames")
	if el == nil {
		el = root.CreateElement("jobNames")
	}

	commaMode := len(el.SelectElements("string")) == 0 && strings.TrimSpace(el.Text()) != ""
	members := currentMembers(el, commaMode)
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		seen[m] = true
	}
	var added []string
	for _, job := range jobs {
		job = strings.TrimSpace(job)
		if job == "" || seen[job] {
			continue
		}
		seen[job] = true
		added = append(added, job)
	}
	if len(added) == 0 {
		return domain.Ok(members)
	}
	members = append(members, added...)

	if commaMode {
		el.SetText(strings.Join(members, ","))
	} else {
		for _, job := range added {
			el.CreateElement("string").SetText(job)
		}
	}
	updated, err := doc.WriteToString()
	if err != nil {
		return domain.Fail[[]string](fmt.Errorf("serializing view %s: %w", view, err))
	}

	current, err := c.ViewConfig(ctx, view)
	if err != nil {
		return domain.Fail[[]string](err)
	}
	if current != original {
		return domain.Fail[[]string](&domain.RemoteError{
			System: system,
			Op:     "add jobs to view",
			Kind:   domain.KindConflict,
			Detail: fmt.Sprintf("view %s was modified while adding jobs", view),
		})
	}
	if err := c.ReconfigView(ctx, view, updated); err != nil {
		return domain.Fail[[]string](err)
	}
	return domain.Ok(members)
}

func currentMembers(el *etree.Element, commaMode bool) []string {
	var members []string
	if commaMode {
		for _, name := range strings.Split(el.Text(), ",") {
			if name = strings.TrimSpace(name); name != "" {
				members = append(members, name)
			}
		}
		return members
	}
	for _, s := range el.SelectElements("string") {
		if name := strings.TrimSpace(s.Text()); name != "" {
			members = append(members, name)
		}
	}
	return members
}

func invalidView(view, detail string) error {
	return &domain.RemoteError{
		System: system,
		Op:     "add jobs to view",
		Kind:   domain.KindInvalid,
		Detail: fmt.Sprintf("view %s has an unreadable config: %s", view, detail),
	}
}
