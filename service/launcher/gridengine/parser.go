package gridengine

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

// ParseSubmission extracts the job ID and job name from a qsub confirmation
// line such as:
//
//	Your job 4728195 ("unet-ssl") has been submitted
func ParseSubmission(output string) (jobID, jobName string, err error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Your job") {
			continue
		}
		cursor := parsly.NewCursor("qsub", []byte(line), 0)
		matched := cursor.MatchOne(yourJobToken)
		if matched.Code != yourJobToken.Code {
			continue
		}
		matched = cursor.MatchAfterOptional(whitespaceToken, numberToken)
		if matched.Code != numberToken.Code {
			return "", "", cursor.NewError(numberToken)
		}
		jobID = matched.Text(cursor)

		matched = cursor.MatchAfterOptional(whitespaceToken, quotedToken)
		if matched.Code != quotedToken.Code {
			return "", "", cursor.NewError(quotedToken)
		}
		jobName = strings.Trim(matched.Text(cursor), `(")`)

		matched = cursor.MatchAfterOptional(whitespaceToken, submittedToken)
		if matched.Code != submittedToken.Code {
			return "", "", cursor.NewError(submittedToken)
		}
		return jobID, jobName, nil
	}
	return "", "", fmt.Errorf("no submission confirmation in output: %q", strings.TrimSpace(output))
}

// JobStatus is one row of qstat output.
type JobStatus struct {
	JobID    string
	Priority string
	Name     string
	Owner    string
	State    string
}

// ParseJobList parses qstat tabular output, skipping the two header lines.
func ParseJobList(output string) ([]*JobStatus, error) {
	var jobs []*JobStatus
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, " \r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "job-ID") || strings.HasPrefix(trimmed, "---") {
			continue
		}
		job, err := parseJobLine(trimmed)
		if err != nil {
			return nil, fmt.Errorf("malformed qstat line %q: %w", trimmed, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func parseJobLine(line string) (*JobStatus, error) {
	cursor := parsly.NewCursor("qstat", []byte(line), 0)
	job := &JobStatus{}

	matched := cursor.MatchAfterOptional(whitespaceToken, numberToken)
	if matched.Code != numberToken.Code {
		return nil, cursor.NewError(numberToken)
	}
	job.JobID = matched.Text(cursor)

	matched = cursor.MatchAfterOptional(whitespaceToken, floatToken)
	if matched.Code != floatToken.Code {
		return nil, cursor.NewError(floatToken)
	}
	job.Priority = matched.Text(cursor)

	matched = cursor.MatchAfterOptional(whitespaceToken, fieldToken)
	if matched.Code != fieldToken.Code {
		return nil, cursor.NewError(fieldToken)
	}
	job.Name = matched.Text(cursor)

	matched = cursor.MatchAfterOptional(whitespaceToken, fieldToken)
	if matched.Code != fieldToken.Code {
		return nil, cursor.NewError(fieldToken)
	}
	job.Owner = matched.Text(cursor)

	matched = cursor.MatchAfterOptional(whitespaceToken, stateToken)
	if matched.Code != stateToken.Code {
		return nil, cursor.NewError(stateToken)
	}
	job.State = matched.Text(cursor)
	return job, nil
}
