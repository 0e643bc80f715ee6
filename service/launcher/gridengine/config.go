package gridengine

// Config controls how jobs reach the grid-engine scheduler.
type Config struct {
	// SubmitHost is where qsub runs. Empty or localhost uses a local shell,
	// anything else opens an SSH session.
	SubmitHost string `yaml:"submitHost" json:"submitHost"`

	// Credentials names the secrets resource holding SSH credentials for the
	// submit host.
	Credentials string `yaml:"credentials" json:"credentials"`

	Qsub  string `yaml:"qsub" json:"qsub"`
	Qstat string `yaml:"qstat" json:"qstat"`
	Qdel  string `yaml:"qdel" json:"qdel"`

	// ScriptBaseURL is where rendered submission scripts are written.
	ScriptBaseURL string `yaml:"scriptBaseURL" json:"scriptBaseURL"`

	// WorkDir becomes the job's -wd directive.
	WorkDir string `yaml:"workDir" json:"workDir"`

	// SourceFiles are sourced before the payload runs (compilers, CUDA).
	SourceFiles []string `yaml:"sourceFiles" json:"sourceFiles"`

	// VirtualEnv, when set, has its bin/activate sourced.
	VirtualEnv string `yaml:"virtualEnv" json:"virtualEnv"`

	// Python and EntryPoint form the payload command together with the
	// experiment config path.
	Python     string `yaml:"python" json:"python"`
	EntryPoint string `yaml:"entryPoint" json:"entryPoint"`

	Resources Resources         `yaml:"resources" json:"resources"`
	Env       map[string]string `yaml:"env" json:"env"`

	// CommandTimeoutMs bounds each scheduler command.
	CommandTimeoutMs int `yaml:"commandTimeoutMs" json:"commandTimeoutMs"`
}

// Init applies defaults.
func (c *Config) Init() {
	if c.Qsub == "" {
		c.Qsub = "qsub"
	}
	if c.Qstat == "" {
		c.Qstat = "qstat"
	}
	if c.Qdel == "" {
		c.Qdel = "qdel"
	}
	if c.Python == "" {
		c.Python = "python"
	}
	if c.EntryPoint == "" {
		c.EntryPoint = "Main.py"
	}
	if c.CommandTimeoutMs == 0 {
		c.CommandTimeoutMs = 60000
	}
	empty := Resources{}
	if c.Resources == empty {
		c.Resources = DefaultResources()
	}
}
