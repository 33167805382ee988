package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	envparse "github.com/caarlos0/env/v11"

	"github.com/paulczy/ado-copilot-code-review/internal/env"
)

// inputsEnv captures the task inputs the agent exposes as INPUT_* variables.
type inputsEnv struct {
	// Token is the personal access token from INPUT_AZUREDEVOPSTOKEN.
	Token string `env:"INPUT_AZUREDEVOPSTOKEN"`
	// Organization is the organization name from INPUT_ORGANIZATION.
	Organization string `env:"INPUT_ORGANIZATION"`
	// Project is the project name from INPUT_PROJECT.
	Project string `env:"INPUT_PROJECT"`
	// Repository is the repository name from INPUT_REPOSITORY.
	Repository string `env:"INPUT_REPOSITORY"`
	// PullRequestID is the pull request id from INPUT_PULLREQUESTID.
	PullRequestID int `env:"INPUT_PULLREQUESTID"`
	// Model is the Copilot model selector from INPUT_MODEL.
	Model string `env:"INPUT_MODEL"`
	// TimeoutMinutes is the review timeout from INPUT_TIMEOUTMINUTES.
	TimeoutMinutes int `env:"INPUT_TIMEOUTMINUTES"`
	// Prompt is the inline reviewer focus from INPUT_PROMPT.
	Prompt string `env:"INPUT_PROMPT"`
	// PromptFile is the reviewer focus file path from INPUT_PROMPTFILE.
	PromptFile string `env:"INPUT_PROMPTFILE"`
	// AllowedAuthors is the comma-separated allow-list from INPUT_ALLOWEDAUTHORS.
	AllowedAuthors string `env:"INPUT_ALLOWEDAUTHORS"`
}

// ambientEnv captures the predefined pipeline variables resolution falls
// back to when explicit inputs are absent.
type ambientEnv struct {
	// CollectionURI is the organization URL from SYSTEM_COLLECTIONURI.
	CollectionURI string `env:"SYSTEM_COLLECTIONURI"`
	// TeamProject is the project name from SYSTEM_TEAMPROJECT.
	TeamProject string `env:"SYSTEM_TEAMPROJECT"`
	// RepositoryName is the repository name from BUILD_REPOSITORY_NAME.
	RepositoryName string `env:"BUILD_REPOSITORY_NAME"`
	// PullRequestID is the validated PR from SYSTEM_PULLREQUEST_PULLREQUESTID.
	PullRequestID int `env:"SYSTEM_PULLREQUEST_PULLREQUESTID"`
	// AccessToken is the job access token from SYSTEM_ACCESSTOKEN.
	AccessToken string `env:"SYSTEM_ACCESSTOKEN"`
	// RequestedForEmail identifies who queued the build, from BUILD_REQUESTEDFOREMAIL.
	RequestedForEmail string `env:"BUILD_REQUESTEDFOREMAIL"`
	// TempDirectory is the agent temp directory from AGENT_TEMPDIRECTORY.
	TempDirectory string `env:"AGENT_TEMPDIRECTORY"`
}

// Flags carries values set explicitly on the command line. Zero values mean
// the flag was not changed; the caller only fills fields cobra reports as
// changed.
type Flags struct {
	Token          string
	Organization   string
	Project        string
	Repository     string
	PullRequestID  int
	Model          string
	TimeoutMinutes int
	Prompt         string
	PromptFile     string
	AllowedAuthors string
}

var (
	orgFromDevAzure     = regexp.MustCompile(`^https?://dev\.azure\.com/([^/]+)`)
	orgFromVisualStudio = regexp.MustCompile(`^https?://([^./]+)\.visualstudio\.com`)
)

// OrganizationFromCollectionURI extracts the organization name from a
// SYSTEM_COLLECTIONURI value, covering both the dev.azure.com form and the
// legacy {org}.visualstudio.com form.
func OrganizationFromCollectionURI(uri string) (string, bool) {
	uri = strings.TrimSpace(uri)
	if m := orgFromDevAzure.FindStringSubmatch(uri); m != nil {
		return m[1], true
	}
	if m := orgFromVisualStudio.FindStringSubmatch(uri); m != nil {
		return m[1], true
	}
	return "", false
}

// Resolve builds the task configuration from the variable snapshot, explicit
// flag values, and an optional defaults file. Each field is tried against an
// ordered list of sources, first non-empty wins. Validation stops at the
// first missing required field.
func Resolve(vars env.Vars, flags Flags, file *FileConfig) (*Config, error) {
	opts := envparse.Options{Environment: map[string]string(vars)}

	var in inputsEnv
	if err := envparse.ParseWithOptions(&in, opts); err != nil {
		return nil, fmt.Errorf("parse task inputs: %w", err)
	}
	var amb ambientEnv
	if err := envparse.ParseWithOptions(&amb, opts); err != nil {
		return nil, fmt.Errorf("parse pipeline variables: %w", err)
	}
	if file == nil {
		file = &FileConfig{}
	}

	cfg := &Config{Sources: make(map[string]string)}

	orgFromURI, _ := OrganizationFromCollectionURI(amb.CollectionURI)
	cfg.Organization = cfg.pick("organization",
		source{"--organization flag", flags.Organization},
		source{"organization input", in.Organization},
		source{"SYSTEM_COLLECTIONURI", orgFromURI},
	)
	cfg.Project = cfg.pick("project",
		source{"--project flag", flags.Project},
		source{"project input", in.Project},
		source{"SYSTEM_TEAMPROJECT", amb.TeamProject},
	)
	cfg.Repository = cfg.pick("repository",
		source{"--repository flag", flags.Repository},
		source{"repository input", in.Repository},
		source{"BUILD_REPOSITORY_NAME", amb.RepositoryName},
	)
	cfg.PullRequestID = cfg.pickInt("pullRequestId",
		intSource{"--pull-request flag", flags.PullRequestID},
		intSource{"pullRequestId input", in.PullRequestID},
		intSource{"SYSTEM_PULLREQUEST_PULLREQUESTID", amb.PullRequestID},
	)

	switch {
	case strings.TrimSpace(flags.Token) != "":
		cfg.Credential = Credential{Token: strings.TrimSpace(flags.Token)}
		cfg.Sources["token"] = "--token flag"
	case strings.TrimSpace(in.Token) != "":
		cfg.Credential = Credential{Token: strings.TrimSpace(in.Token)}
		cfg.Sources["token"] = "azureDevOpsToken input"
	case strings.TrimSpace(amb.AccessToken) != "":
		cfg.Credential = Credential{Token: strings.TrimSpace(amb.AccessToken), Bearer: true}
		cfg.Sources["token"] = "SYSTEM_ACCESSTOKEN"
	}

	cfg.Model = cfg.pick("model",
		source{"--model flag", flags.Model},
		source{"model input", in.Model},
		source{"config file", file.Model},
	)
	minutes := cfg.pickInt("timeoutMinutes",
		intSource{"--timeout-minutes flag", flags.TimeoutMinutes},
		intSource{"timeoutMinutes input", in.TimeoutMinutes},
		intSource{"config file", file.TimeoutMinutes},
		intSource{"built-in default", DefaultTimeoutMinutes},
	)
	cfg.Prompt = cfg.pick("prompt",
		source{"--prompt flag", flags.Prompt},
		source{"prompt input", in.Prompt},
	)
	cfg.PromptFile = cfg.pick("promptFile",
		source{"--prompt-file flag", flags.PromptFile},
		source{"promptFile input", in.PromptFile},
		source{"config file", file.PromptFile},
	)

	switch {
	case strings.TrimSpace(flags.AllowedAuthors) != "":
		cfg.AllowedAuthors = splitList(flags.AllowedAuthors)
		cfg.Sources["allowedAuthors"] = "--allowed-authors flag"
	case strings.TrimSpace(in.AllowedAuthors) != "":
		cfg.AllowedAuthors = splitList(in.AllowedAuthors)
		cfg.Sources["allowedAuthors"] = "allowedAuthors input"
	case len(file.AllowedAuthors) > 0:
		cfg.AllowedAuthors = trimAll(file.AllowedAuthors)
		cfg.Sources["allowedAuthors"] = "config file"
	}

	cfg.RequestedForEmail = strings.TrimSpace(amb.RequestedForEmail)
	cfg.TempDir = strings.TrimSpace(amb.TempDirectory)

	if err := cfg.validate(minutes); err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(minutes) * time.Minute

	return cfg, nil
}

// validate checks required fields in a fixed order and reports the first
// one missing with an actionable message.
func (c *Config) validate(timeoutMinutes int) error {
	if c.Organization == "" {
		return fmt.Errorf("organization could not be resolved: set the organization input or run where SYSTEM_COLLECTIONURI is defined")
	}
	if c.Project == "" {
		return fmt.Errorf("project could not be resolved: set the project input or run where SYSTEM_TEAMPROJECT is defined")
	}
	if c.Repository == "" {
		return fmt.Errorf("repository could not be resolved: set the repository input or run where BUILD_REPOSITORY_NAME is defined")
	}
	if c.PullRequestID == 0 {
		return fmt.Errorf("pull request id could not be resolved: set the pullRequestId input or run in a pull request validation build (SYSTEM_PULLREQUEST_PULLREQUESTID)")
	}
	if c.Credential.IsZero() {
		return fmt.Errorf("no credential available: set the azureDevOpsToken input or map SYSTEM_ACCESSTOKEN into the task environment")
	}
	if timeoutMinutes <= 0 {
		return fmt.Errorf("timeoutMinutes must be positive, got %d", timeoutMinutes)
	}
	return nil
}

type source struct {
	name  string
	value string
}

func (c *Config) pick(field string, candidates ...source) string {
	for _, cand := range candidates {
		if value := strings.TrimSpace(cand.value); value != "" {
			c.Sources[field] = cand.name
			return value
		}
	}
	return ""
}

type intSource struct {
	name  string
	value int
}

func (c *Config) pickInt(field string, candidates ...intSource) int {
	for _, cand := range candidates {
		if cand.value != 0 {
			c.Sources[field] = cand.name
			return cand.value
		}
	}
	return 0
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
