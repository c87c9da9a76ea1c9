package server

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"

	"github.com/UnknownOlympus/stratus/internal/api"
	"github.com/UnknownOlympus/stratus/internal/dashboard"
	"github.com/UnknownOlympus/stratus/internal/models"
	"github.com/UnknownOlympus/stratus/internal/routes"
	"github.com/UnknownOlympus/stratus/internal/search"
	"github.com/UnknownOlympus/stratus/internal/view"
	"github.com/gofiber/fiber/v2"
)

// addRequest is the body of POST /add-location.
type addRequest struct {
	Name      string   `json:"name"      validate:"required,max=200"`
	Latitude  *float64 `json:"latitude"  validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// getDashboard loads a fresh session, waits for its weather within the load timeout
// and renders whatever has settled by then.
func (s *Server) getDashboard(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.opts.LoadTimeout)
	defer cancel()

	session := dashboard.NewSession(ctx, dashboard.Options{
		API:     s.opts.API,
		Logger:  s.log,
		Metrics: s.opts.Metrics,
		Workers: s.opts.Workers,
		Sink:    s.opts.Sink,
	})
	defer session.Close()

	if err := session.Load(ctx); err == nil {
		if err = session.Wait(ctx); err != nil {
			s.log.WarnContext(ctx, "Dashboard rendered before all weather arrived", "error", err)
		}
	}

	return c.JSON(view.NewDashboard(session.State(), s.opts.Unit))
}

func (s *Server) getLocations(c *fiber.Ctx) error {
	locations, err := s.opts.API.ListLocations(c.UserContext())
	if err != nil {
		s.log.ErrorContext(c.UserContext(), "Failed to load locations", "error", err)
		return fiber.NewError(statusFor(err), api.Message(err, "Failed to load locations"))
	}

	return c.JSON(view.NewLocations(locations))
}

func (s *Server) deleteLocation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "location id must be a positive integer")
	}

	if err = s.opts.API.DeleteLocation(c.UserContext(), int64(id)); err != nil {
		s.log.ErrorContext(c.UserContext(), "Failed to delete location", "location", id, "error", err)
		return fiber.NewError(statusFor(err), api.Message(err, "Failed to delete location"))
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// newFlow gives each request its own search and add state, so concurrent clients
// never see each other's results, alerts or pending operations.
func (s *Server) newFlow() *search.Flow {
	return search.New(s.opts.API, s.log, s.opts.Metrics)
}

// searchLocations renders the add-location page. Without a "q" parameter the page is empty.
func (s *Server) searchLocations(c *fiber.Ctx) error {
	flow := s.newFlow()
	if !c.Context().QueryArgs().Has("q") {
		return c.JSON(view.NewAddLocation("", nil, "", flow.IsAdding))
	}

	query := c.Query("q")
	results, err := flow.Search(c.UserContext(), query)
	if err != nil {
		if errors.Is(err, api.ErrEmptyQuery) {
			return fiber.NewError(fiber.StatusBadRequest, "Please enter a city name")
		}
		return fiber.NewError(statusFor(err), flow.Alert())
	}

	return c.JSON(view.NewAddLocation(strings.TrimSpace(query), results, flow.Alert(), flow.IsAdding))
}

func (s *Server) addLocation(c *fiber.Ctx) error {
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	flow := s.newFlow()
	loc, err := flow.Add(c.UserContext(), models.SearchResult{
		Name:        req.Name,
		DisplayName: req.Name,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), flow.Alert())
	}

	return c.Status(fiber.StatusCreated).JSON(loc)
}

func (s *Server) getWeatherDetails(c *fiber.Ctx) error {
	id, err := routes.LocationIDFrom(url.Values{routes.LocationIDParam: {c.Query(routes.LocationIDParam)}})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	locations, err := s.opts.API.ListLocations(ctx)
	if err != nil {
		return fiber.NewError(statusFor(err), api.Message(err, "Failed to load locations"))
	}

	idx := slices.IndexFunc(locations, func(l models.Location) bool { return l.ID == id })
	if idx < 0 {
		return fiber.NewError(fiber.StatusNotFound, "location not found")
	}

	card := dashboard.Card{Location: locations[idx]}
	snapshot, err := s.opts.API.GetWeather(ctx, id)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to fetch weather", "location", id, "error", err)
		card.Entry = dashboard.Entry{Status: dashboard.StatusFailed, Reason: api.Message(err, err.Error())}
	} else {
		card.Entry = dashboard.Entry{Status: dashboard.StatusReady, Snapshot: snapshot}
	}

	return c.JSON(view.NewDetails(card, s.opts.Unit))
}

func (s *Server) getProfile(c *fiber.Ctx) error {
	return c.JSON(view.NewProfile(s.opts.Username, s.opts.Email, s.opts.Unit))
}

func (s *Server) healthz(c *fiber.Ctx) error {
	if s.opts.Health != nil {
		if err := s.opts.Health.Health(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "weather backend unreachable: "+err.Error())
		}
	}

	return c.JSON(fiber.Map{"status": "ok", "service": "stratus"})
}
