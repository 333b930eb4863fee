package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pichub/internal/apperror"
	"github.com/sakif/pichub/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRepo() model.RepoRef {
	return model.RepoRef{Owner: "sakif", Name: "pics", Branch: "main"}
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestGenerateFilename_HashIsDeterministic(t *testing.T) {
	naming := model.Naming{Strategy: model.NamingHash}
	content := b64("image bytes")

	a := GenerateFilename("photo.png", content, naming, 1700000000000)
	b := GenerateFilename("photo.png", content, naming, 1700000000000)
	assert.Equal(t, a, b, "same content and timestamp must produce the same name")

	c := GenerateFilename("photo.png", content, naming, 1700000000001)
	assert.NotEqual(t, a, c, "a different timestamp must produce a different name")

	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.Len(t, strings.TrimSuffix(a, ".png"), 8)
}

func TestGenerateFilename_Timestamp(t *testing.T) {
	naming := model.Naming{Strategy: model.NamingTimestamp}
	got := GenerateFilename("photo.png", b64("x"), naming, 1700000000000)
	assert.Equal(t, "1700000000000.png", got)
}

func TestGenerateFilename_Custom(t *testing.T) {
	naming := model.Naming{Strategy: model.NamingCustom, Prefix: "blog-", Suffix: "-v2"}
	got := GenerateFilename("photo.png", b64("x"), naming, 1700000000000)
	assert.Equal(t, "blog-photo-v2.png", got)
}

func TestGenerateFilename_UnknownStrategyKeepsOriginal(t *testing.T) {
	got := GenerateFilename("photo.png", b64("x"), model.Naming{Strategy: "whatever"}, 1)
	assert.Equal(t, "photo.png", got)
}

func TestGenerateFilename_NoExtension(t *testing.T) {
	naming := model.Naming{Strategy: model.NamingHash}
	got := GenerateFilename("README", b64("x"), naming, 1700000000000)
	assert.NotContains(t, got, ".")
	assert.Len(t, got, 8)
}

func TestCollisionFilename(t *testing.T) {
	got := CollisionFilename("photo.png", 1700000000000)

	assert.True(t, strings.HasPrefix(got, "photo_"))
	assert.True(t, strings.HasSuffix(got, ".png"))
	assert.Len(t, got, len("photo_")+6+len(".png"))

	again := CollisionFilename("photo.png", 1700000000000)
	assert.Equal(t, got, again)

	other := CollisionFilename("photo.png", 1700000000001)
	assert.NotEqual(t, got, other)
}

func TestDatedDirectory(t *testing.T) {
	now := time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "images/2024/03/07", DatedDirectory("images", now))
	assert.Equal(t, "", DatedDirectory("", now))
	assert.Equal(t, "", DatedDirectory("root", now))
}

func TestAccessURLs(t *testing.T) {
	urls := AccessURLs(testRepo(), "images/2024/03/07/a.png")

	assert.Equal(t, "https://raw.githubusercontent.com/sakif/pics/main/images/2024/03/07/a.png", urls.Raw)
	assert.Equal(t, "https://github.com/sakif/pics/blob/main/images/2024/03/07/a.png", urls.GitHub)
	assert.Equal(t, "https://cdn.jsdelivr.net/gh/sakif/pics@main/images/2024/03/07/a.png", urls.CDN)
}

func TestUpload_StoresFileUnderDatedPath(t *testing.T) {
	fake := newFakeGitHub()
	svc := NewUploadService(fake.server(t), testLogger())

	result, err := svc.Upload(context.Background(), "token", UploadRequest{
		Content:   b64("image bytes"),
		Filename:  "photo.png",
		Repo:      testRepo(),
		Directory: "images",
		Naming:    model.Naming{Strategy: model.NamingHash},
		Timestamp: 1700000000000,
	})
	require.NoError(t, err)

	wantDir := DatedDirectory("images", time.Now())
	assert.True(t, strings.HasPrefix(result.Path, wantDir+"/"), "path %q should sit under %q", result.Path, wantDir)
	assert.Equal(t, wantDir+"/"+result.Filename, result.Path)
	assert.NotEmpty(t, result.SHA)
	assert.Contains(t, result.URLs.Raw, result.Path)

	stored, ok := fake.get(result.Path)
	require.True(t, ok, "file must exist in the repository after upload")
	assert.Equal(t, b64("image bytes"), stored.content)
}

func TestUpload_CollisionWritesDistinctPath(t *testing.T) {
	fake := newFakeGitHub()
	svc := NewUploadService(fake.server(t), testLogger())

	req := UploadRequest{
		Content:   b64("first image"),
		Filename:  "photo.png",
		Repo:      testRepo(),
		Directory: "images",
		Naming:    model.Naming{Strategy: model.NamingHash},
		Timestamp: 1700000000000,
	}

	// Occupy the exact path the upload would compute.
	occupiedPath := DatedDirectory("images", time.Now()) + "/" +
		GenerateFilename(req.Filename, req.Content, req.Naming, req.Timestamp)
	fake.put(occupiedPath, b64("existing image"))

	result, err := svc.Upload(context.Background(), "token", req)
	require.NoError(t, err)

	assert.NotEqual(t, occupiedPath, result.Path, "a collision must land on a fresh path")

	existing, ok := fake.get(occupiedPath)
	require.True(t, ok, "the pre-existing file must survive the upload")
	assert.Equal(t, b64("existing image"), existing.content, "the pre-existing content must be untouched")

	uploaded, ok := fake.get(result.Path)
	require.True(t, ok)
	assert.Equal(t, b64("first image"), uploaded.content)
}

func TestUpload_RejectsMissingFields(t *testing.T) {
	fake := newFakeGitHub()
	svc := NewUploadService(fake.server(t), testLogger())

	_, err := svc.Upload(context.Background(), "token", UploadRequest{Filename: "a.png"})
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))

	_, err = svc.Upload(context.Background(), "token", UploadRequest{Content: b64("x")})
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))

	assert.Equal(t, 0, fake.callCount(), "validation failures must not reach the API")
}

func TestUpload_RootDirectorySkipsDateBuckets(t *testing.T) {
	fake := newFakeGitHub()
	svc := NewUploadService(fake.server(t), testLogger())

	result, err := svc.Upload(context.Background(), "token", UploadRequest{
		Content:   b64("x"),
		Filename:  "photo.png",
		Repo:      testRepo(),
		Directory: "root",
		Naming:    model.Naming{Strategy: model.NamingTimestamp},
		Timestamp: 1700000000000,
	})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000.png", result.Path, "root uploads store flat at the repository top")
}

func TestUploadBatch_ReportsEverySuccessAndFailure(t *testing.T) {
	fake := newFakeGitHub()
	svc := NewUploadService(fake.server(t), testLogger())

	files := []BatchFile{
		{Content: b64("one"), Filename: "one.png"},
		{Content: "", Filename: "broken.png"}, // fails validation
		{Content: b64("three"), Filename: "three.png"},
	}

	result, err := svc.UploadBatch(context.Background(), "token", files, testRepo(), "images", model.Naming{Strategy: model.NamingHash})
	require.NoError(t, err)

	assert.Len(t, result.Succeeded, 2, "a failing item must not abort the rest")
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "broken.png", result.Failed[0].Filename)
	assert.NotEmpty(t, result.Failed[0].Error)
}

func TestUploadBatch_DistinctTimestampsPreventIntraBatchCollisions(t *testing.T) {
	fake := newFakeGitHub()
	svc := NewUploadService(fake.server(t), testLogger())

	// Identical content and name: without per-item timestamps the hash
	// strategy would compute the same path for both.
	files := []BatchFile{
		{Content: b64("same"), Filename: "same.png"},
		{Content: b64("same"), Filename: "same.png"},
	}

	result, err := svc.UploadBatch(context.Background(), "token", files, testRepo(), "images", model.Naming{Strategy: model.NamingHash})
	require.NoError(t, err)

	require.Len(t, result.Succeeded, 2)
	assert.NotEqual(t, result.Succeeded[0].Path, result.Succeeded[1].Path)
}

func TestUploadBatch_EmptyList(t *testing.T) {
	fake := newFakeGitHub()
	svc := NewUploadService(fake.server(t), testLogger())

	_, err := svc.UploadBatch(context.Background(), "token", nil, testRepo(), "images", model.Naming{})
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}
