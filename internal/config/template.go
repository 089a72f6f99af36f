package config

// Template is the default configuration written by `envsync init`.
// The three environments mirror the usual workstation / pre-release /
// production layout; edit hosts and paths to match your setup.
const Template = `# envsync configuration
# Schema: run genschema to produce a JSON schema for editor validation.

[environments.local]
transport = "local"
path = "/path/to/your/project"

[environments.staging]
transport = "remote"
host = "staging.example.com"
user = "deploy"
path = "/data2/project"

[environments.prod]
transport = "remote"
host = "prod.internal"
user = "deploy"
path = "/data/project"

[settings]
# auto_trust_hosts = false
# checkpoint_keep = 5
`
