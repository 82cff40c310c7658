package git

import (
	"errors"
	"reflect"
	"testing"
)

func TestRemotes_AddListRemove(t *testing.T) {
	r := createTestRepo(t)

	remotes, err := r.Remotes(ctx)
	if err != nil {
		t.Fatalf("Remotes: %v", err)
	}
	if len(remotes) != 0 {
		t.Errorf("new repo has remotes: %v", remotes)
	}

	if err := r.AddRemote(ctx, "origin", "git@example.com:me/dots.git"); err != nil {
		t.Fatalf("AddRemote origin: %v", err)
	}
	if err := r.AddRemote(ctx, "backup", "https://example.com/dots.git"); err != nil {
		t.Fatalf("AddRemote backup: %v", err)
	}

	remotes, err = r.Remotes(ctx)
	if err != nil {
		t.Fatalf("Remotes: %v", err)
	}
	want := []Remote{
		{Name: "backup", URL: "https://example.com/dots.git"},
		{Name: "origin", URL: "git@example.com:me/dots.git"},
	}
	if !reflect.DeepEqual(remotes, want) {
		t.Errorf("Remotes = %+v, want %+v", remotes, want)
	}

	if url, err := r.RemoteURL(ctx, "origin"); err != nil || url != "git@example.com:me/dots.git" {
		t.Errorf("RemoteURL = %q, %v", url, err)
	}

	if err := r.RemoveRemote(ctx, "backup"); err != nil {
		t.Fatalf("RemoveRemote: %v", err)
	}
	if ok, _ := r.HasRemote(ctx, "backup"); ok {
		t.Error("backup should be gone")
	}
}

func TestAddRemote_Duplicate(t *testing.T) {
	r := createTestRepo(t)
	if err := r.AddRemote(ctx, "origin", "/tmp/a"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddRemote(ctx, "origin", "/tmp/b"); !errors.Is(err, ErrRemoteExists) {
		t.Errorf("AddRemote duplicate error = %v, want ErrRemoteExists", err)
	}
}

func TestRemoveRemote_Missing(t *testing.T) {
	r := createTestRepo(t)
	if err := r.RemoveRemote(ctx, "nope"); !errors.Is(err, ErrRemoteNotFound) {
		t.Errorf("RemoveRemote error = %v, want ErrRemoteNotFound", err)
	}
	if _, err := r.RemoteURL(ctx, "nope"); !errors.Is(err, ErrRemoteNotFound) {
		t.Errorf("RemoteURL error = %v, want ErrRemoteNotFound", err)
	}
}

func TestTracking(t *testing.T) {
	r := createTestRepo(t)

	if _, err := r.TrackedRemote(ctx, "main"); !errors.Is(err, ErrNoTrackedRemote) {
		t.Errorf("TrackedRemote error = %v, want ErrNoTrackedRemote", err)
	}

	if err := r.SetTracking(ctx, "main", "origin"); err != nil {
		t.Fatalf("SetTracking: %v", err)
	}
	if name, err := r.TrackedRemote(ctx, "main"); err != nil || name != "origin" {
		t.Errorf("TrackedRemote = %q, %v", name, err)
	}
	if merge := gitCmd(t, r, "config", "--get", "branch.main.merge"); merge != "refs/heads/main" {
		t.Errorf("branch.main.merge = %q", merge)
	}
}
