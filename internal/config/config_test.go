package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, config *Config)
	}{
		{
			name: "Minimal valid configuration",
			env: map[string]string{
				"GITHUB_TOKEN": "test-token",
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "test-token", config.GitHub.Token)
				assert.Equal(t, "github.com", config.GitHub.Domain)
				assert.Equal(t, "Task", config.Jira.IssueType)
				assert.Equal(t, "customfield_10100", config.Jira.ReferenceField)
			},
		},
		{
			name: "Custom GitHub domain",
			env: map[string]string{
				"GITHUB_TOKEN":  "test-token",
				"GITHUB_DOMAIN": "github.example.com",
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "github.example.com", config.GitHub.Domain)
			},
		},
		{
			name: "Jira settings pass through",
			env: map[string]string{
				"GITHUB_TOKEN":         "test-token",
				"JIRA_PROJECT":         "PROJ",
				"JIRA_COMPONENT":       "Mirrored",
				"JIRA_ISSUE_TYPE":      "Story",
				"JIRA_REFERENCE_FIELD": "customfield_12345",
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "PROJ", config.Jira.Project)
				assert.Equal(t, "Mirrored", config.Jira.Component)
				assert.Equal(t, "Story", config.Jira.IssueType)
				assert.Equal(t, "customfield_12345", config.Jira.ReferenceField)
			},
		},
		{
			name:    "Missing token",
			env:     map[string]string{},
			wantErr: true,
		},
	}

	vars := []string{
		"GITHUB_TOKEN", "GITHUB_DOMAIN", "GITHUB_REPOSITORY",
		"JIRA_URL", "JIRA_USERNAME", "JIRA_TOKEN",
		"JIRA_PROJECT", "JIRA_COMPONENT", "JIRA_ISSUE_TYPE", "JIRA_REFERENCE_FIELD",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range vars {
				require.NoError(t, os.Unsetenv(name))
			}
			for name, value := range tt.env {
				t.Setenv(name, value)
			}

			config, err := LoadConfig()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, config)
			if tt.check != nil {
				tt.check(t, config)
			}
		})
	}
}

func TestValidateJiraConfig(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		username string
		token    string
		project  string
		wantErr  bool
	}{
		{
			name:     "All fields present",
			baseURL:  "https://jira.example.com",
			username: "test-user",
			token:    "test-token",
			project:  "PROJ",
			wantErr:  false,
		},
		{
			name:     "Missing base URL",
			baseURL:  "",
			username: "test-user",
			token:    "test-token",
			project:  "PROJ",
			wantErr:  true,
		},
		{
			name:     "Missing username",
			baseURL:  "https://jira.example.com",
			username: "",
			token:    "test-token",
			project:  "PROJ",
			wantErr:  true,
		},
		{
			name:     "Missing token",
			baseURL:  "https://jira.example.com",
			username: "test-user",
			token:    "",
			project:  "PROJ",
			wantErr:  true,
		},
		{
			name:     "Missing project",
			baseURL:  "https://jira.example.com",
			username: "test-user",
			token:    "test-token",
			project:  "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{
				Jira: JiraConfig{
					BaseURL:  tt.baseURL,
					Username: tt.username,
					Token:    tt.token,
					Project:  tt.project,
				},
			}

			err := ValidateJiraConfig(config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
