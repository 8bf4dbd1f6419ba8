package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"examseat/client"
	"examseat/internal/domain"
	httpapi "examseat/internal/http"
	"examseat/internal/repository"
	"examseat/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	logger := zap.NewNop()
	roomsRepo := repository.NewMemoryRoomsRepo()
	roster := service.NewRosterStore(repository.NewMemoryAllocationsRepo(), logger)

	router := httpapi.NewRouter(logger, nil)
	router.RegisterAllocationRoutes(httpapi.NewAllocationHandler(
		service.NewAllocationService(roomsRepo, roster, nil, logger),
		roster,
		service.NewResultsService(roster, nil, nil, logger),
		logger,
	))
	router.RegisterRoomRoutes(httpapi.NewRoomHandler(service.NewRoomService(roomsRepo, logger), logger))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return client.New(srv.URL, nil)
}

func TestRun_AllocateShowExport(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	dir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, run(ctx, c, []string{"rooms", "add", "A", "2"}, "", &out))
	require.NoError(t, run(ctx, c, []string{"rooms", "add", "B", "3"}, "", &out))

	roster := filepath.Join(dir, "math.csv")
	require.NoError(t, os.WriteFile(roster, []byte("RollNo\ns1\ns2\ns3\ns4\n"), 0o644))

	out.Reset()
	require.NoError(t, run(ctx, c, []string{"allocate", "Math", roster}, "", &out))
	assert.Contains(t, out.String(), "allocation_math: 4 seated, 0 unseated across 2 rooms (capacity 5)")

	out.Reset()
	require.NoError(t, run(ctx, c, []string{"show", "Math", "B"}, "", &out))
	assert.Contains(t, out.String(), "s3 s4")

	out.Reset()
	require.NoError(t, run(ctx, c, []string{"replace", "Math", "B", "s9,s8"}, "", &out))
	assert.Contains(t, out.String(), "s9 s8")

	exported := filepath.Join(dir, "math-export.csv")
	require.NoError(t, run(ctx, c, []string{"export", "Math", "csv"}, exported, &out))
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "B,3,2,\"s9, s8\"")

	err = run(ctx, c, []string{"remove", "Math", "A", "nobody"}, "", &out)
	assert.ErrorIs(t, err, domain.ErrOccupantNotFound)

	require.NoError(t, run(ctx, c, []string{"drop", "Math"}, "", &out))
	err = run(ctx, c, []string{"show", "Math"}, "", &out)
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}

func TestRun_Usage(t *testing.T) {
	c := newClient(t)
	var out bytes.Buffer
	assert.ErrorIs(t, run(context.Background(), c, []string{"bogus"}, "", &out), errUsage)
	assert.ErrorIs(t, run(context.Background(), c, []string{"show"}, "", &out), errUsage)
	assert.ErrorIs(t, run(context.Background(), c, []string{"rooms", "add", "A", "x"}, "", &out), errUsage)
}
