package buildserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// EmptyJobConfigXML is a freestyle project with no SCM, triggers or builders.
const EmptyJobConfigXML = `<?xml version='1.0' encoding='UTF-8'?>
<project>
  <keepDependencies>false</keepDependencies>
  <properties/>
  <scm class='jenkins.scm.NullSCM'/>
  <canRoam>true</canRoam>
  <disabled>false</disabled>
  <blockBuildWhenUpstreamBuilding>false</blockBuildWhenUpstreamBuilding>
  <triggers class='vector'/>
  <concurrentBuild>false</concurrentBuild>
  <builders/>
  <publishers/>
  <buildWrappers/>
</project>`

const xmlContentType = "application/xml; charset=utf-8"

// jobsTree walks three folder levels deep.
const jobsTree = "jobs[_class,name,url,color,jobs[_class,name,url,color,jobs[_class,name,url,color]]]"

// Version returns the server version from the X-Jenkins header.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, "get version", http.MethodGet, "/api/json", url.Values{"tree": {"mode"}}, nil, "")
	if err != nil {
		return "", err
	}
	version := resp.header.Get("X-Jenkins")
	if version == "" {
		return "", fmt.Errorf("server did not report a version")
	}
	return version, nil
}

// WhoAmI returns the authenticated user.
func (c *Client) WhoAmI(ctx context.Context) (User, error) {
	var u User
	if err := c.getJSON(ctx, "whoami", "/me/api/json", nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Jobs lists every job, flattening folders. Folders themselves are included.
func (c *Client) Jobs(ctx context.Context) ([]Job, error) {
	var root struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.getJSON(ctx, "list jobs", "/api/json", url.Values{"tree": {jobsTree}}, &root); err != nil {
		return nil, err
	}
	var out []Job
	var walk func(prefix string, jobs []Job)
	walk = func(prefix string, jobs []Job) {
		for _, j := range jobs {
			j.FullName = prefix + j.Name
			children := j.Jobs
			j.Jobs = nil
			out = append(out, j)
			walk(j.FullName+"/", children)
		}
	}
	walk("", root.Jobs)
	return out, nil
}

// JobInfo returns a job's metadata and build references.
func (c *Client) JobInfo(ctx context.Context, name string) (JobInfo, error) {
	var info JobInfo
	if err := c.getJSON(ctx, "get job info", jobPath(name)+"/api/json", nil, &info); err != nil {
		return JobInfo{}, err
	}
	return info, nil
}

// LastBuild returns the most recent build of a job, or nil if it never ran.
func (c *Client) LastBuild(ctx context.Context, name string) (*BuildRef, error) {
	info, err := c.JobInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	return info.LastBuild, nil
}

// Build queues a build and returns the queue item ID. Parameters switch to
// buildWithParameters. A missing job yields an error wrapping domain.ErrNotFound.
func (c *Client) Build(ctx context.Context, name string, params map[string]string) (int64, error) {
	path := jobPath(name) + "/build"
	var body []byte
	contentType := ""
	if len(params) > 0 {
		path = jobPath(name) + "/buildWithParameters"
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		body = []byte(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	resp, err := c.post(ctx, "build job", path, nil, body, contentType)
	if err != nil {
		return 0, fmt.Errorf("triggering build of %s: %w", name, err)
	}
	return queueIDFromLocation(resp.header.Get("Location")), nil
}

// queueIDFromLocation extracts 123 from ".../queue/item/123/".
func queueIDFromLocation(location string) int64 {
	parts := strings.Split(strings.Trim(location, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] != "item" {
		return 0
	}
	id, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return id
}

// BuildInfo returns one build.
func (c *Client) BuildInfo(ctx context.Context, name string, number int64) (Build, error) {
	var b Build
	if err := c.getJSON(ctx, "get build info", buildPath(name, number)+"/api/json", nil, &b); err != nil {
		return Build{}, err
	}
	return b, nil
}

// Builds returns the builds Jenkins keeps for a job, newest first.
func (c *Client) Builds(ctx context.Context, name string) ([]Build, error) {
	var result struct {
		Builds []Build `json:"builds"`
	}
	tree := "builds[number,url,displayName,result,building,duration,estimatedDuration,timestamp,queueId]"
	if err := c.getJSON(ctx, "list builds", jobPath(name)+"/api/json", url.Values{"tree": {tree}}, &result); err != nil {
		return nil, err
	}
	return result.Builds, nil
}

// ConsoleOutput returns the full console text of a build.
func (c *Client) ConsoleOutput(ctx context.Context, name string, number int64) (string, error) {
	return c.getText(ctx, "get console output", buildPath(name, number)+"/consoleText")
}

// TestReport returns the raw test report of a build.
func (c *Client) TestReport(ctx context.Context, name string, number int64) (map[string]any, error) {
	var report map[string]any
	if err := c.getJSON(ctx, "get test report", buildPath(name, number)+"/testReport/api/json", nil, &report); err != nil {
		return nil, err
	}
	return report, nil
}

// StopBuild aborts a running build.
func (c *Client) StopBuild(ctx context.Context, name string, number int64) error {
	_, err := c.post(ctx, "stop build", buildPath(name, number)+"/stop", nil, nil, "")
	return err
}

func buildPath(name string, number int64) string {
	return jobPath(name) + "/" + strconv.FormatInt(number, 10)
}

// CreateJob creates a job from configXML. Folder paths create inside the folder.
func (c *Client) CreateJob(ctx context.Context, name, configXML string) error {
	folder, leaf := splitJobName(name)
	_, err := c.post(ctx, "create job", folder+"/createItem", url.Values{"name": {leaf}}, []byte(configXML), xmlContentType)
	return err
}

// CopyJob creates newName with the configuration of name.
func (c *Client) CopyJob(ctx context.Context, name, newName string) error {
	cfg, err := c.JobConfig(ctx, name)
	if err != nil {
		return err
	}
	return c.CreateJob(ctx, newName, cfg)
}

// JobConfig returns a job's config.xml.
func (c *Client) JobConfig(ctx context.Context, name string) (string, error) {
	return c.getText(ctx, "get job config", jobPath(name)+"/config.xml")
}

// ReconfigJob replaces a job's config.xml.
func (c *Client) ReconfigJob(ctx context.Context, name, configXML string) error {
	_, err := c.post(ctx, "reconfig job", jobPath(name)+"/config.xml", nil, []byte(configXML), xmlContentType)
	return err
}

// EnableJob enables a disabled job.
func (c *Client) EnableJob(ctx context.Context, name string) error {
	_, err := c.post(ctx, "enable job", jobPath(name)+"/enable", nil, nil, "")
	return err
}

// DisableJob disables a job.
func (c *Client) DisableJob(ctx context.Context, name string) error {
	_, err := c.post(ctx, "disable job", jobPath(name)+"/disable", nil, nil, "")
	return err
}

// DeleteJob deletes a job and its builds.
func (c *Client) DeleteJob(ctx context.Context, name string) error {
	_, err := c.post(ctx, "delete job", jobPath(name)+"/doDelete", nil, nil, "")
	return err
}

// QueueInfo returns the items waiting in the build queue.
func (c *Client) QueueInfo(ctx context.Context) ([]QueueItem, error) {
	var result struct {
		Items []QueueItem `json:"items"`
	}
	if err := c.getJSON(ctx, "get queue", "/queue/api/json", nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Plugins returns the installed plugins.
func (c *Client) Plugins(ctx context.Context) ([]Plugin, error) {
	var result struct {
		Plugins []Plugin `json:"plugins"`
	}
	if err := c.getJSON(ctx, "list plugins", "/pluginManager/api/json", url.Values{"depth": {"2"}}, &result); err != nil {
		return nil, err
	}
	return result.Plugins, nil
}
