package keysource

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// SSMSource reads the key from AWS Systems Manager Parameter Store by
// shelling out to the aws CLI, which handles region/profile/SSO
// resolution itself.
//
// Reference forms:
//
//	ssm:///path/to/param           (default region)
//	ssm://us-west-2/path/to/param  (explicit region)
type SSMSource struct{}

// Scheme returns "ssm".
func (s *SSMSource) Scheme() string {
	return "ssm"
}

// Resolve fetches the decrypted parameter value.
func (s *SSMSource) Resolve(ctx context.Context, reference string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := exec.LookPath("aws"); err != nil {
		return nil, &BackendError{
			Backend: "AWS SSM",
			Reason:  "aws CLI not found in PATH",
			Fix:     "Install from https://aws.amazon.com/cli/",
		}
	}

	region, paramPath, err := parseSSMReference(reference)
	if err != nil {
		return nil, err
	}

	args := []string{
		"ssm", "get-parameter",
		"--name", paramPath,
		"--with-decryption",
		"--query", "Parameter.Value",
		"--output", "text",
	}
	if region != "" {
		args = append(args, "--region", region)
	}

	cmd := exec.CommandContext(ctx, "aws", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "ParameterNotFound") {
			return nil, &NotFoundError{Reference: paramPath, Backend: "AWS SSM"}
		}
		if msg == "" {
			msg = err.Error()
		}
		return nil, &BackendError{
			Backend: "AWS SSM",
			Reason:  msg,
			Fix:     "Check AWS credentials (aws sts get-caller-identity) and the parameter name.",
		}
	}

	// text output appends a trailing newline that is not part of the PEM
	return []byte(strings.TrimSpace(stdout.String()) + "\n"), nil
}

// parseSSMReference extracts region and parameter path.
// ssm:///path/to/param -> ("", "/path/to/param")
// ssm://us-west-2/path/to/param -> ("us-west-2", "/path/to/param")
func parseSSMReference(ref string) (region, path string, err error) {
	rest := trimScheme(ref, "ssm")
	if rest == "" {
		return "", "", &InvalidReferenceError{Reference: ref, Reason: "empty parameter path"}
	}
	if strings.HasPrefix(rest, "/") {
		return "", rest, nil
	}
	region, path, ok := strings.Cut(rest, "/")
	if !ok || path == "" {
		return "", "", &InvalidReferenceError{Reference: ref, Reason: "expected ssm://[REGION]/path"}
	}
	return region, "/" + path, nil
}
