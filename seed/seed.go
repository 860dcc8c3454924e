// Package seed fills an empty deployment with demo restaurants.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strconv"

	"tablebook/models"
)

const tablesPerRestaurant = 10

var baseNames = []string{
	"Pasta Palace", "Sushi Sensation", "Burger Bonanza", "Curry Express", "Steakhouse Supreme",
	"Taco Tower", "Dim Sum Delights", "Pizza Planet", "Noodle Nirvana", "BBQ Haven", "Ramen Retreat",
	"Grill Garden", "Burrito Bazaar", "Waffle Wonderland", "Fried Feast", "Crispy Corner",
	"Pasta Place", "Sushi Shack", "Burger Barn", "Curry Kingdom", "Steak Street", "Taco Town",
	"Dim Sum Den", "Pizza Plaza", "Noodle Nook", "BBQ Bistro", "Ramen Realm", "Grill Groove",
	"Burrito Bay", "Waffle World", "Fried Fantasy", "Crispy Castle", "Pasta Parade", "Sushi Symphony",
	"Burger Block", "Curry Cabin", "Steak Spot", "Taco Trail", "Dim Sum Delight", "Pizza Pavilion",
	"Noodle Nest", "BBQ Bar", "Ramen Roost", "Grill Glory", "Burrito Blast", "Waffle Works",
	"Fried Fortress", "Crispy Cuisine", "Sushi Super", "Burger Break", "Curry Charm",
	"Steak Suite", "Taco Temple", "Dim Sum Dynasty", "Pizza Peak", "BBQ Boulevard",
	"Ramen Ranch", "Grill Grove", "Burrito Branch", "Waffle Wharf", "Fried Field", "Crispy Creations",
	"Pasta Pavilion", "Sushi Set", "Burger Basin", "Curry Cove", "Steak Stand", "Taco Tides",
	"Dim Sum Domain", "Noodle Nexus", "BBQ Bend", "Ramen River", "Grill Gateway",
	"Burrito Bayou", "Waffle Wilderness", "Pasta Point", "Sushi Shores",
	"Burger Bluff", "Curry Canyon", "Steak Station", "Dim Sum District", "Pizza Paradise",
	"BBQ Belt", "Ramen Rise", "Fried Farm", "Crispy Cupboard", "Sushi Space", "Burger Box", "Curry City",
	"Steak Shack", "Taco Track", "Pizza Point", "BBQ Blast", "Grill Grotto", "Burrito Barracks",
	"Fried Factory", "Crispy Coast",
}

var featureSets = [][]string{
	{"Italian", "Pasta"}, {"Japanese", "Sushi"}, {"American", "Burgers"}, {"Indian", "Curry"}, {"Steak", "Grill"},
	{"Mexican", "Tacos"}, {"Chinese", "Dim Sum"}, {"Italian", "Pizza"}, {"Asian", "Noodles"}, {"American", "BBQ"},
}

var Locations = []string{
	"Kumarapuram", "Medical College", "Pattom", "Panampilly Nagar", "Alappuzha",
	"Cochin", "Vyttila", "Edapally", "Fort Kochi", "Kochi",
}

var (
	statuses = []models.RestaurantStatus{models.RestaurantBusy, models.RestaurantFree}
	prices   = []string{"$", "$$", "$$$"}
	styles   = []string{"authentic", "fusion", "gourmet", "local"}
	seats    = []int{2, 4, 6}
)

// Writer is the part of the store the seeder needs.
type Writer interface {
	ResetReservations(ctx context.Context) error
	ResetRestaurants(ctx context.Context) error
	PutRestaurant(ctx context.Context, r *models.Restaurant) error
	PutLocation(ctx context.Context, l models.Location) error
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

// uniqueNames draws n distinct names, numbering repeats once the base list runs out.
func uniqueNames(rng *rand.Rand, n int) []string {
	names := make([]string, 0, n)
	for round := 1; len(names) < n; round++ {
		for _, i := range rng.Perm(len(baseNames)) {
			if len(names) == n {
				break
			}
			name := baseNames[i]
			if round > 1 {
				name = fmt.Sprintf("%s %d", name, round)
			}
			names = append(names, name)
		}
	}
	return names
}

func openingHours(rng *rand.Rand) map[string]models.OpeningHours {
	hours := make(map[string]models.OpeningHours, len(models.Weekdays))
	for _, day := range models.Weekdays {
		hours[day] = models.OpeningHours{
			Open:  fmt.Sprintf("%02d:00", 8+rng.Intn(4)),
			Close: fmt.Sprintf("%02d:00", 20+rng.Intn(4)),
		}
	}
	return hours
}

// hourlySlots returns available slots from open up to but excluding close.
func hourlySlots(openHour, closeHour int) []models.TimeSlot {
	slots := make([]models.TimeSlot, 0, closeHour-openHour)
	for h := openHour; h < closeHour; h++ {
		slots = append(slots, models.TimeSlot{Time: fmt.Sprintf("%02d:00", h), Status: models.SlotAvailable})
	}
	return slots
}

func hourOf(label string) int {
	h, _ := strconv.Atoi(label[:2])
	return h
}

// Generate builds n restaurants with ids "1".."n" and table ids "<i>_<j>".
func Generate(rng *rand.Rand, n int) []models.Restaurant {
	names := uniqueNames(rng, n)
	restaurants := make([]models.Restaurant, 0, n)

	for i := 0; i < n; i++ {
		hours := openingHours(rng)
		monday := hours["monday"]
		openHour, closeHour := hourOf(monday.Open), hourOf(monday.Close)

		tables := make([]models.Table, 0, tablesPerRestaurant)
		for j := 0; j < tablesPerRestaurant; j++ {
			tables = append(tables, models.Table{
				ID:           fmt.Sprintf("%d_%d", i+1, j+1),
				Seats:        pick(rng, seats),
				TimeSlots:    hourlySlots(openHour, closeHour),
				Reservations: []models.ReservationStub{},
			})
		}

		restaurants = append(restaurants, models.Restaurant{
			ID:           strconv.Itoa(i + 1),
			Name:         names[i],
			Rating:       float64(35+rng.Intn(16)) / 10,
			Features:     append([]string(nil), pick(rng, featureSets)...),
			Price:        pick(rng, prices),
			Status:       pick(rng, statuses),
			Description:  fmt.Sprintf("A cozy restaurant serving %s cuisine.", pick(rng, styles)),
			Location:     pick(rng, Locations),
			Image:        "https://source.unsplash.com/400x300/?restaurant," + url.PathEscape(names[i]),
			OpeningHours: hours,
			Tables:       tables,
		})
	}
	return restaurants
}

// Run replaces all restaurants with n generated ones and upserts the
// locations. Existing reservations are deleted with the restaurants.
func Run(ctx context.Context, w Writer, rng *rand.Rand, n int) error {
	log.Println("Deleting existing reservations...")
	if err := w.ResetReservations(ctx); err != nil {
		return fmt.Errorf("reset reservations: %w", err)
	}
	log.Println("Deleting existing restaurants...")
	if err := w.ResetRestaurants(ctx); err != nil {
		return fmt.Errorf("reset restaurants: %w", err)
	}

	for _, r := range Generate(rng, n) {
		if err := w.PutRestaurant(ctx, &r); err != nil {
			return fmt.Errorf("add restaurant %s: %w", r.ID, err)
		}
		log.Printf("Added restaurant: %s at %s", r.Name, r.Location)
	}

	for _, name := range Locations {
		if err := w.PutLocation(ctx, models.Location{Name: name}); err != nil {
			return fmt.Errorf("add location %s: %w", name, err)
		}
	}
	log.Printf("Seeded %d restaurants and %d locations", n, len(Locations))
	return nil
}
