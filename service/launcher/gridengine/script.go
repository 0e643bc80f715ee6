package gridengine

import (
	"bytes"
	"fmt"
	"text/template"
)

// Resources are the scheduler resource requests rendered as #$ directives.
type Resources struct {
	Shell       string `yaml:"shell" json:"shell"`
	Memory      string `yaml:"tmem" json:"tmem"`
	GPU         bool   `yaml:"gpu" json:"gpu"`
	Runtime     string `yaml:"h_rt" json:"h_rt"`
	Reservation bool   `yaml:"reservation" json:"reservation"`
}

// DefaultResources returns the resource requests used when an experiment does
// not override them.
func DefaultResources() Resources {
	return Resources{
		Shell:       "/bin/bash",
		Memory:      "14G",
		GPU:         true,
		Runtime:     "72:0:0",
		Reservation: true,
	}
}

// Job describes one rendered submission script.
type Job struct {
	Name        string
	WorkDir     string
	Resources   Resources
	SourceFiles []string
	VirtualEnv  string
	Command     string
}

var scriptTemplate = template.Must(template.New("job").Parse(`#!/bin/bash
#$ -S {{.Resources.Shell}}
#$ -l tmem={{.Resources.Memory}}
{{if .Resources.GPU -}}
#$ -l gpu=true
{{end -}}
#$ -l h_rt={{.Resources.Runtime}}
#$ -j y
#$ -N {{.Name}}
{{if .Resources.Reservation -}}
#$ -R y
{{end -}}
{{if .WorkDir -}}
#$ -wd {{.WorkDir}}
{{end}}
{{- range .SourceFiles}}
source {{.}}
{{- end}}
{{- if .VirtualEnv}}
source {{.VirtualEnv}}/bin/activate
{{- end}}

{{.Command}}
`))

// RenderScript produces the grid-engine submission script for a job.
func RenderScript(job *Job) (string, error) {
	if job.Name == "" {
		return "", fmt.Errorf("job name cannot be empty")
	}
	if job.Command == "" {
		return "", fmt.Errorf("job command cannot be empty")
	}
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, job); err != nil {
		return "", fmt.Errorf("failed to render job script: %w", err)
	}
	return buf.String(), nil
}
