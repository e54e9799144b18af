package buildserver

// User is the reshaped /me/api/json answer.
type User struct {
	ID          string `json:"id"`
	AbsoluteURL string `json:"absoluteUrl"`
	FullName    string `json:"fullName"`
	Description string `json:"description"`
}

// Job is one entry of the job listing. FullName includes enclosing folders.
type Job struct {
	Class    string `json:"_class"`
	Name     string `json:"name"`
	FullName string `json:"fullname"`
	URL      string `json:"url"`
	Color    string `json:"color"`
	Jobs     []Job  `json:"jobs,omitempty"`
}

// BuildRef points at one build of a job.
type BuildRef struct {
	Number int64  `json:"number"`
	URL    string `json:"url"`
}

// JobInfo is the subset of a job's api/json that callers use.
type JobInfo struct {
	Name            string     `json:"name"`
	FullName        string     `json:"fullName"`
	URL             string     `json:"url"`
	Description     string     `json:"description"`
	Color           string     `json:"color"`
	Buildable       bool       `json:"buildable"`
	InQueue         bool       `json:"inQueue"`
	NextBuildNumber int64      `json:"nextBuildNumber"`
	LastBuild       *BuildRef  `json:"lastBuild"`
	LastSuccessful  *BuildRef  `json:"lastSuccessfulBuild"`
	LastFailed      *BuildRef  `json:"lastFailedBuild"`
	Builds          []BuildRef `json:"builds"`
}

// Build is a build's api/json.
type Build struct {
	Number            int64  `json:"number"`
	URL               string `json:"url"`
	DisplayName       string `json:"displayName"`
	Description       string `json:"description"`
	Result            string `json:"result"`
	Building          bool   `json:"building"`
	Duration          int64  `json:"duration"`
	EstimatedDuration int64  `json:"estimatedDuration"`
	Timestamp         int64  `json:"timestamp"`
	QueueID           int64  `json:"queueId"`
}

// View is one entry of the view listing.
type View struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// QueueItem is a pending build in the queue.
type QueueItem struct {
	ID           int64  `json:"id"`
	Why          string `json:"why"`
	Blocked      bool   `json:"blocked"`
	Buildable    bool   `json:"buildable"`
	Stuck        bool   `json:"stuck"`
	InQueueSince int64  `json:"inQueueSince"`
	Task         struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"task"`
}

// Plugin is an installed plugin.
type Plugin struct {
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	Version   string `json:"version"`
	Active    bool   `json:"active"`
	Enabled   bool   `json:"enabled"`
	HasUpdate bool   `json:"hasUpdate"`
	URL       string `json:"url"`
}

// Node is an agent as listed by /computer.
type Node struct {
	DisplayName        string `json:"displayName"`
	Description        string `json:"description"`
	NumExecutors       int    `json:"numExecutors"`
	Offline            bool   `json:"offline"`
	TemporarilyOffline bool   `json:"temporarilyOffline"`
	Idle               bool   `json:"idle"`
	OfflineCauseReason string `json:"offlineCauseReason"`
}

// NodeSpec describes a permanent agent to create. Zero values get the
// usual Jenkins defaults applied by CreateNode.
type NodeSpec struct {
	Name         string
	Description  string
	NumExecutors int
	RemoteFS     string
	Labels       string
	Exclusive    bool
}
