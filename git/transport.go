package git

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Fetch downloads branch from remote, reporting transfer progress to
// onProgress, and returns the fetched commit id. Only FETCH_HEAD and any
// configured remote-tracking reference are updated.
func (r *Repository) Fetch(ctx context.Context, remote, branch string, env []string, onProgress func(Progress)) (string, error) {
	tracker := NewTracker(onProgress)
	args := []string{"fetch", "--progress", "--no-tags", remote, BranchRef(branch)}

	r.log.Debug("fetching", "remote", remote, "branch", branch)
	_, stderr, err := r.executor.Stream(ctx, r.Worktree, env, observe(tracker, PhaseReceiving, PhaseResolving), "git", r.args(args)...)
	if err != nil {
		return "", commandError(args, []byte(transportMessage(stderr)), err)
	}
	tracker.Finish()

	id, ok, err := r.ResolveCommit(ctx, "FETCH_HEAD")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("fetch of %s from %s produced no FETCH_HEAD", branch, remote)
	}
	return id, nil
}

// observe returns a stderr line handler feeding tracker the progress
// lines of the given phases. Fetch and push each see the other side's
// phases in remote: lines, which are dropped.
func observe(tracker *Tracker, phases ...Phase) func(string) {
	return func(line string) {
		if p, ok := ParseProgress(line); ok && slices.Contains(phases, p.Phase) {
			tracker.Update(p)
		}
	}
}

// RefUpdate is one line of `git push --porcelain` output.
type RefUpdate struct {
	Flag    byte // ' ', '+', '-', '*', '!' or '='
	Src     string
	Dst     string
	Summary string
	Reason  string
}

// Rejected reports whether the remote refused this update.
func (u RefUpdate) Rejected() bool {
	return u.Flag == '!'
}

// PushRejectedError is returned when the remote refuses a reference update.
type PushRejectedError struct {
	Ref    string
	Reason string
}

func (e *PushRejectedError) Error() string {
	return fmt.Sprintf("Failed to update reference %s with message: %s", e.Ref, e.Reason)
}

// Push sends branch to the branch of the same name on remote, reporting
// transfer progress to onProgress. A rejected reference is returned as a
// *PushRejectedError.
func (r *Repository) Push(ctx context.Context, remote, branch string, env []string, onProgress func(Progress)) ([]RefUpdate, error) {
	tracker := NewTracker(onProgress)
	ref := BranchRef(branch)
	args := []string{"push", "--porcelain", "--progress", remote, ref + ":" + ref}

	r.log.Debug("pushing", "remote", remote, "branch", branch)
	stdout, stderr, err := r.executor.Stream(ctx, r.Worktree, env, observe(tracker, PhaseSending), "git", r.args(args)...)

	updates := ParsePushPorcelain(stdout)
	for _, u := range updates {
		if u.Rejected() {
			return updates, &PushRejectedError{Ref: u.Dst, Reason: u.Reason}
		}
	}
	if err != nil {
		return updates, commandError(args, []byte(transportMessage(stderr)), err)
	}

	tracker.Finish()
	return updates, nil
}

// ParsePushPorcelain parses the reference lines of `git push --porcelain`
// output: "<flag>\t<src>:<dst>\t<summary> (<reason>)".
func ParsePushPorcelain(out []byte) []RefUpdate {
	var updates []RefUpdate
	for line := range strings.SplitSeq(string(out), "\n") {
		if len(line) < 2 || line[1] != '\t' {
			continue
		}
		fields := strings.SplitN(line[2:], "\t", 2)
		if len(fields) != 2 {
			continue
		}
		src, dst, _ := strings.Cut(fields[0], ":")

		u := RefUpdate{Flag: line[0], Src: src, Dst: dst, Summary: fields[1]}
		if open := strings.LastIndex(fields[1], " ("); open >= 0 && strings.HasSuffix(fields[1], ")") {
			u.Summary = fields[1][:open]
			u.Reason = fields[1][open+2 : len(fields[1])-1]
		}
		if u.Reason == "" {
			u.Reason = strings.Trim(u.Summary, "[]")
		}
		updates = append(updates, u)
	}
	return updates
}

// transportMessage drops progress lines from transport stderr, keeping the
// lines that explain a failure.
func transportMessage(stderr []byte) string {
	var kept []string
	for line := range strings.SplitSeq(strings.ReplaceAll(string(stderr), "\r", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "% (") || strings.HasPrefix(line, "hint:") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "; ")
}
