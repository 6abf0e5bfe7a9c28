package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonnes/cmsync/core"
	"github.com/sonnes/cmsync/redact"
)

const savedLogs = `{"results":[
	{"status":"SUCCESS","createdAt":1700000000000,"executionTime":12,"log":"mailed jane@example.com"},
	{"status":"UNHANDLED_ERROR","createdAt":1700000001000,"executionTime":3,"error":{"type":"Error","message":"boom","stackTrace":[["a (x.js:1)"]]}}
]}`

func TestRunLogsFromFile(t *testing.T) {
	a, _ := newTestApp(t, map[string]string{"/project/logs.json": savedLogs})

	var out bytes.Buffer
	err := a.runLogs(context.Background(), logsInput{
		File:     "logs.json",
		Plain:    true,
		Redactor: redact.New(redact.DefaultConfig()),
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"2023-11-14T22:13:20.000Z - SUCCESS - Execution Time: 12ms",
		"mailed [REDACTED:email]",
		"2023-11-14T22:13:21.000Z - UNHANDLED_ERROR - Execution Time: 3ms",
		"Error: boom",
		"  at a (x.js:1)",
	}, "\n")+"\n", out.String())
}

func TestRunLogsStdinLatestCompact(t *testing.T) {
	a, _ := newTestApp(t, nil)
	a.stdin = strings.NewReader(savedLogs)

	var out bytes.Buffer
	err := a.runLogs(context.Background(), logsInput{
		File:    "-",
		Latest:  true,
		Plain:   true,
		Options: core.RenderOptions{Compact: true, Insertions: core.Insertions{Header: "contact"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "2023-11-14T22:13:21.000Z - UNHANDLED_ERROR - contact - Execution Time: 3ms\n", out.String())
}

func TestRunLogsEmpty(t *testing.T) {
	a, _ := newTestApp(t, map[string]string{"/project/empty.json": `{"results": []}`})

	var out bytes.Buffer
	require.NoError(t, a.runLogs(context.Background(), logsInput{File: "empty.json"}, &out))
	assert.Equal(t, "No logs found.\n", out.String())
}

func TestRunLogsFromLocalRemote(t *testing.T) {
	a, _ := newTestApp(t, map[string]string{"/project/.cms/42/@logs/api/contact.json": savedLogs})
	cfg := testCfg()
	client, err := a.remote(cfg, cfg.Accounts[0])
	require.NoError(t, err)

	var out bytes.Buffer
	err = a.runLogs(context.Background(), logsInput{
		Route: "api/contact",
		Plain: true,
		fetch: func(ctx context.Context) (*core.LogResponse, error) {
			return client.Logs(ctx, 42, "api/contact", false)
		},
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "mailed jane@example.com")
}

func TestRunLogsBadFile(t *testing.T) {
	a, buf := newTestApp(t, map[string]string{"/project/bad.json": "{"})

	var out bytes.Buffer
	requireExitCode(t, a.runLogs(context.Background(), logsInput{File: "bad.json"}, &out), 1)
	assert.Contains(t, buf.String(), "decode log response")

	requireExitCode(t, a.runLogs(context.Background(), logsInput{File: "missing.json"}, &out), 1)
}

func TestRunLogsRendersAroundBadRecord(t *testing.T) {
	a, buf := newTestApp(t, map[string]string{"/project/logs.json": `{"results":[
		{"status":"SUCCESS","createdAt":1700000000000,"executionTime":12,"log":"one"},
		{"status":"SUCCESS","createdAt":1700000000500,"executionTime":12.5,"log":"half"},
		{"status":"SUCCESS","createdAt":1700000001000,"executionTime":3,"log":"two"}
	]}`})

	var out bytes.Buffer
	err := a.runLogs(context.Background(), logsInput{File: "logs.json", Plain: true}, &out)
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"2023-11-14T22:13:20.000Z - SUCCESS - Execution Time: 12ms",
		"one",
		"2023-11-14T22:13:21.000Z - SUCCESS - Execution Time: 3ms",
		"two",
	}, "\n")+"\n", out.String())
	assert.Contains(t, buf.String(), "Unable to process log")
	assert.Contains(t, buf.String(), "12.5")
}
