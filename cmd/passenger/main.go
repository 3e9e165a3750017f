// Command passenger is a small end-to-end walkthrough of the client
// engine against a running backend: it requests a trip, picks the first
// available driver, and waits for the negotiation to settle.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"ridesync/internal/config"
	"ridesync/internal/domain"
	"ridesync/internal/logging"
	"ridesync/internal/negotiation"
	"ridesync/internal/repository/httpapi"
	"ridesync/internal/service"
	"ridesync/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel)

	passengerID := os.Getenv("PASSENGER_ID")
	if passengerID == "" {
		passengerID = "passenger-demo"
	}

	repo := httpapi.NewTripRepository(cfg.Engine.APIBaseURL, cfg.Engine.RequestTimeout)
	store := storage.NewMemoryStore()

	ctx := context.Background()
	svc, err := service.NewTripService(ctx, repo, store, cfg.Engine, passengerID, logger)
	if err != nil {
		log.Fatalf("start engine: %v", err)
	}
	defer svc.Close()

	origin := domain.Location{Address: "Av. Reforma 100", Lat: 19.4326, Lng: -99.1332}
	destination := domain.Location{Address: "Av. Insurgentes 500", Lat: 19.3910, Lng: -99.1710}

	outcome, err := svc.RequestTrip(ctx, origin, destination, domain.PaymentMethodCash)
	if err != nil {
		log.Fatalf("request trip: %v", err)
	}
	if outcome.Deferred() {
		log.Printf("offline: request queued as operation %s", outcome.QueuedOpID)
		return
	}
	trip := outcome.Trip
	log.Printf("trip %s requested: fare=%.2f distance=%.2fkm duration=%.0fmin",
		trip.ID, trip.Fare, trip.Distance, trip.Duration)

	drivers, err := svc.AvailableDrivers(ctx)
	if err != nil {
		log.Fatalf("list drivers: %v", err)
	}
	if len(drivers) == 0 {
		log.Fatal("no drivers available")
	}
	driver := drivers[0]
	log.Printf("selecting driver %s (%s, rating %.1f)", driver.ID, driver.Profile.Name, driver.Rating)

	if err := svc.SelectDriver(ctx, trip.ID, driver.ID); err != nil {
		log.Fatalf("select driver: %v", err)
	}

	session := negotiation.Start(repo, trip.ID, driver.ID, negotiation.Config{
		PollInterval: cfg.Engine.PollInterval,
		Timeout:      cfg.Engine.NegotiationTimeout,
	}, logger)

	result, ok := <-session.Done()
	if !ok {
		log.Println("negotiation cancelled")
		return
	}

	switch result.State {
	case negotiation.StateConfirmed:
		log.Printf("driver %s confirmed, trip is %s", driver.ID, result.Trip.Status)
	case negotiation.StateRejected:
		log.Printf("driver %s declined, pick another driver", driver.ID)
	case negotiation.StateTimedOut:
		log.Printf("no answer from driver %s within %s", driver.ID, cfg.Engine.NegotiationTimeout)
	}

	// Give the cache a beat before reading back the history.
	time.Sleep(200 * time.Millisecond)
	trips, err := svc.GetUserTripsWithCache(ctx)
	if err != nil {
		log.Fatalf("list trips: %v", err)
	}
	log.Printf("%d trip(s) on record (from cache: %v)", len(trips.Trips), trips.FromCache)
}
