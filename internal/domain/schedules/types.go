package schedules

// Type identifica la variante de recurrencia de un schedule.
// @Enum fixed_time, interval, prn, cyclic, tapered, meal_based, sliding_scale
type Type string

const (
	TypeFixedTime    Type = "fixed_time"
	TypeInterval     Type = "interval"
	TypePRN          Type = "prn"
	TypeCyclic       Type = "cyclic"
	TypeTapered      Type = "tapered"
	TypeMealBased    Type = "meal_based"
	TypeSlidingScale Type = "sliding_scale"
)

// Frequency restringe los días en que aplica un schedule fixed_time.
// @Enum daily, weekly, monthly
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Relation indica si la dosis va antes, después o con la comida.
// @Enum before, after, with
type Relation string

const (
	RelationBefore Relation = "before"
	RelationAfter  Relation = "after"
	RelationWith   Relation = "with"
)

// Meal es una de las comidas configuradas por paciente.
// @Enum breakfast, lunch, dinner
type Meal string

const (
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
)

// Meals en orden del día (se usa para sugerir la comida adyacente).
var Meals = []Meal{MealBreakfast, MealLunch, MealDinner}

type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusRetired    Status = "retired"
)
