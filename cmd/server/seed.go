package main

import (
	"context"
	"fmt"

	"karavanCanteen/models"
	"karavanCanteen/repository"

	"github.com/shopspring/decimal"
)

var demoUsers = []models.User{
	{Username: "teacher", Role: models.RoleTeacher},
	{Username: "kitchen", Role: models.RoleCanteen},
	{Username: "admin", Role: models.RoleAdmin},
}

var demoMenu = []models.MenuItem{
	{Name: "Chicken Biryani", Description: "Basmati rice, raita", Price: decimal.RequireFromString("150"), Category: "mains", Available: true},
	{Name: "Veg Thali", Description: "Dal, sabzi, rice, roti", Price: decimal.RequireFromString("120"), Category: "mains", Available: true},
	{Name: "Samosa", Description: "Two pieces with chutney", Price: decimal.RequireFromString("30"), Category: "snacks", Available: true},
	{Name: "Masala Chai", Price: decimal.RequireFromString("20"), Category: "beverages", Available: true},
	{Name: "Cold Coffee", Price: decimal.RequireFromString("60"), Category: "beverages", Available: true},
}

// seedDemo inserts missing demo users and, on an empty catalog, the demo menu.
func seedDemo(ctx context.Context, users *repository.UserRepository, menu *repository.MenuRepository) error {
	for _, u := range demoUsers {
		existing, err := users.GetByUsername(ctx, u.Username)
		if err != nil {
			return fmt.Errorf("get user %s: %w", u.Username, err)
		}
		if existing != nil {
			continue
		}
		if _, err := users.Create(ctx, u.Username, u.Role); err != nil {
			return fmt.Errorf("create user %s: %w", u.Username, err)
		}
	}
	first, err := menu.GetByID(ctx, 1)
	if err != nil {
		return fmt.Errorf("probe menu: %w", err)
	}
	if first != nil {
		return nil
	}
	for i := range demoMenu {
		if _, err := menu.Create(ctx, &demoMenu[i]); err != nil {
			return fmt.Errorf("create menu item %s: %w", demoMenu[i].Name, err)
		}
	}
	return nil
}
