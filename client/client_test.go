package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"examseat/internal/domain"
	httpapi "examseat/internal/http"
	"examseat/internal/repository"
	"examseat/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	roomsRepo := repository.NewMemoryRoomsRepo(
		domain.Room{RoomID: "A", Capacity: 2, Position: 1},
		domain.Room{RoomID: "B", Capacity: 3, Position: 2},
	)
	roster := service.NewRosterStore(repository.NewMemoryAllocationsRepo(), logger)

	router := httpapi.NewRouter(logger, nil)
	router.RegisterAllocationRoutes(httpapi.NewAllocationHandler(
		service.NewAllocationService(roomsRepo, roster, nil, logger),
		roster,
		service.NewResultsService(roster, nil, nil, logger),
		logger,
	))
	router.RegisterRoomRoutes(httpapi.NewRoomHandler(service.NewRoomService(roomsRepo, logger), logger))
	router.RegisterOpsRoutes(httpapi.NewOpsHandler(nil, nil, logger), nil)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RosterWorkflow(t *testing.T) {
	c := New(newServer(t).URL, nil)
	ctx := context.Background()

	res, err := c.Allocate(ctx, "Math", "math.csv", strings.NewReader("RollNo\ns1\ns2\ns3\ns4\n"))
	require.NoError(t, err)
	assert.Equal(t, "allocation_math", res.Dataset.Name)
	assert.Equal(t, 4, res.Summary.Seated)
	assert.Equal(t, 0, res.Summary.Unseated)

	rec, err := c.Record(ctx, "Math", "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s4"}, rec.Occupants)

	rec, err = c.RemoveOccupant(ctx, "Math", "A", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, rec.Occupants)

	_, err = c.RemoveOccupant(ctx, "Math", "A", "s1")
	assert.ErrorIs(t, err, domain.ErrOccupantNotFound)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	rec, err = c.ReplaceOccupants(ctx, "Math", "A", nil)
	require.NoError(t, err)
	assert.Empty(t, rec.Occupants)

	results, err := c.Results(ctx)
	require.NoError(t, err)
	require.Contains(t, results, "allocation_math")
	assert.Equal(t, 0, results["allocation_math"][0].OccupantCount)

	csv, err := c.Export(ctx, "Math", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), "Room,Capacity,Count,Roll Numbers"))

	require.NoError(t, c.Drop(ctx, "Math"))
	require.NoError(t, c.Drop(ctx, "Math"))

	_, err = c.Dataset(ctx, "Math")
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
	_, err = c.Export(ctx, "Math", "csv")
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}

func TestClient_Rooms(t *testing.T) {
	c := New(newServer(t).URL, nil)
	ctx := context.Background()

	saved, err := c.UpsertRoom(ctx, domain.Room{RoomID: "C", Capacity: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Position)

	rooms, err := c.Rooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 3)

	require.NoError(t, c.DeleteRoom(ctx, "C"))
	err = c.DeleteRoom(ctx, "C")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = c.UpsertRoom(ctx, domain.Room{RoomID: "D", Capacity: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestClient_EventsWithoutHistory(t *testing.T) {
	c := New(newServer(t).URL, nil)
	events, err := c.Events(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, nil)
	c.httpClient.SetRetryCount(0)
	_, err := c.Rooms(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.NotErrorAs(t, err, &apiErr)
}
