// Package api provides the HTTP client for the Workout Planner backend.
//
// The backend exposes JSON-over-HTTPS endpoints for authentication
// (/auth/login, /auth/register, /users/me), workout logging (/workout/),
// daily history (/data/{date}), and food scanning (/scan/). This package
// wraps those endpoints behind typed methods and maps every transport
// outcome to the error taxonomy in errors.go, so callers never inspect
// HTTP status codes or client-specific error shapes.
//
// Quick start:
//
//	client := api.NewClient(api.WithBaseURL("https://api.example.com"))
//
//	tok, err := client.Login(ctx, api.LoginRequest{
//	    Email:    "a@x.com",
//	    Password: "secret",
//	})
//	if err != nil {
//	    if errors.Is(err, api.ErrInvalidCredentials) {
//	        // wrong email or password
//	    }
//	}
package api

// UserProfile is the authenticated user's profile as returned by the
// backend. Goal fields are optional server-side; a zero value means the
// application default applies.
type UserProfile struct {
	// ID is the backend's user identifier.
	ID string `json:"id"`

	// Username is the display name chosen at registration.
	Username string `json:"username"`

	// Email is the account identifier used for login.
	Email string `json:"email"`

	// DailyCalorieGoal is the daily calorie target in kcal.
	DailyCalorieGoal int `json:"dailyCalorieGoal,omitempty"`

	// ProteinGoal is the daily protein target in grams.
	ProteinGoal int `json:"proteinGoal,omitempty"`

	// CarbsGoal is the daily carbohydrate target in grams.
	CarbsGoal int `json:"carbsGoal,omitempty"`

	// FiberGoal is the daily fiber target in grams.
	FiberGoal int `json:"fiberGoal,omitempty"`

	// WorkoutStreak is the consecutive-day workout counter.
	WorkoutStreak int `json:"workoutStreak"`

	// CreatedAt is the ISO 8601 account creation timestamp.
	CreatedAt string `json:"createdAt,omitempty"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	DailyCalorieGoal int    `json:"dailyCalorieGoal"`
}

// TokenResponse is returned by both login and register: a bearer token
// plus the user profile in a single round trip, so no follow-up fetch
// is needed to enter an authenticated session.
type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        UserProfile `json:"user"`
}

// WorkoutEntry is the body for POST /workout/.
type WorkoutEntry struct {
	Exercise string  `json:"exercise"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	Weight   float64 `json:"weight"`
	// Duration is in minutes.
	Duration int `json:"duration"`
}

// WorkoutLogResult acknowledges a logged workout.
type WorkoutLogResult struct {
	Message   string `json:"message"`
	WorkoutID string `json:"workoutId"`
	Date      string `json:"date"`
}

// LoggedWorkout is a workout entry as stored in a daily log.
type LoggedWorkout struct {
	ID       string  `json:"id"`
	Exercise string  `json:"exercise"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	Weight   float64 `json:"weight"`
	Duration int     `json:"duration"`
	Date     string  `json:"date"`
}

// NutritionItem is a single logged food item.
type NutritionItem struct {
	FoodItem   string  `json:"foodItem"`
	Calories   float64 `json:"calories"`
	Confidence float64 `json:"confidence,omitempty"`
}

// NutritionSummary aggregates the day's logged food.
type NutritionSummary struct {
	TotalCalories float64         `json:"totalCalories"`
	Items         []NutritionItem `json:"items"`
}

// DailyHistory is one day's workouts and nutrition, from GET /data/{date}.
// Date is empty in single-day responses and set in range responses.
type DailyHistory struct {
	Date      string           `json:"date,omitempty"`
	Workouts  []LoggedWorkout  `json:"workouts"`
	Nutrition NutritionSummary `json:"nutrition"`
}

// FoodPrediction is the recognition result for an uploaded meal photo,
// from POST /scan/. Macro fields are grams.
type FoodPrediction struct {
	FoodItem   string  `json:"food_item"`
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	Carbs      float64 `json:"carbs"`
	Fat        float64 `json:"fat"`
	Fiber      float64 `json:"fiber"`
	Confidence float64 `json:"confidence"`
}
