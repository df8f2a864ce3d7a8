package stamps

import (
	model "github.com/glkeru/loyalty/stamps/internal/models"
)

// Лимиты по тарифам
var planLimits = map[model.PlanID]model.Limits{
	model.PlanFreemium: {MaxPrograms: 1, MaxCustomersPerProgram: 10},
	model.PlanStart:    {MaxPrograms: 5, MaxCustomersPerProgram: 30},
	model.PlanPro:      {MaxPrograms: 10, MaxCustomersPerProgram: 60},
}

// Подписки в магазине приложений
var productPlans = map[string]model.PlanID{
	"fidelapp_start_mensal": model.PlanStart,
	"fidelapp_pro_mensal":   model.PlanPro,
}

// LimitsFor falls back to the free tier for unknown plans.
func LimitsFor(plan model.PlanID) model.Limits {
	l, ok := planLimits[plan]
	if !ok {
		return planLimits[model.PlanFreemium]
	}
	return l
}

// Реклама только на бесплатном тарифе
func AdsEligible(plan model.PlanID) bool {
	return Parse(string(plan)) == model.PlanFreemium
}

func Parse(s string) model.PlanID {
	p := model.PlanID(s)
	if _, ok := planLimits[p]; ok {
		return p
	}
	return model.PlanFreemium
}

// Resolve: лимиты тарифа, положительные переопределения имеют приоритет
func Resolve(plan model.PlanID, overrides *model.LimitOverrides) model.Limits {
	l := LimitsFor(plan)
	if overrides == nil {
		return l
	}
	if overrides.MaxPrograms > 0 {
		l.MaxPrograms = overrides.MaxPrograms
	}
	if overrides.MaxCustomersPerProgram > 0 {
		l.MaxCustomersPerProgram = overrides.MaxCustomersPerProgram
	}
	return l
}

func PlanForProduct(productID string) (model.PlanID, bool) {
	p, ok := productPlans[productID]
	return p, ok
}
