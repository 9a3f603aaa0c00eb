package model

import "strings"

// Категория дохода, для которой обязательна дистанция поездки
const IncomeCategoryRide = "Corrida"

// Значение по умолчанию для категорий и платформ
const Other = "Outros"

// IncomeCategories содержит допустимые категории доходов
var IncomeCategories = []string{IncomeCategoryRide, "Gorjeta", "Bônus", Other}

// IncomeSources содержит платформы, с которых приходит доход
var IncomeSources = []string{
	"Uber", "99", "InDrive", "UBRA", "Garupa", "Rota 77",
	"Guri", "Mais Próximo", "Particular", Other,
}

// ExpenseCategories содержит допустимые категории расходов
var ExpenseCategories = []string{
	"Combustível",
	"Manutenção",
	"Limpeza",
	"Alimentação/Água",
	"Pedágio",
	"Aluguel do Veículo",
	"Parcela do Financiamento",
	"Seguro",
	"Impostos/Taxas Anuais",
	"Plano de Celular",
	"Taxa da Plataforma",
	Other,
}

// NormalizeIncomeCategory приводит категорию к каноническому написанию
func NormalizeIncomeCategory(category string) string {
	return normalize(category, IncomeCategories, Other)
}

// NormalizeIncomeSource приводит платформу к каноническому написанию
func NormalizeIncomeSource(source string) string {
	return normalize(source, IncomeSources, Other)
}

// NormalizeExpenseCategory приводит категорию расхода к каноническому написанию
func NormalizeExpenseCategory(category string) string {
	return normalize(category, ExpenseCategories, Other)
}

func normalize(value string, allowed []string, fallback string) string {
	value = strings.TrimSpace(value)
	for _, v := range allowed {
		if equalFold(v, value) {
			return v
		}
	}
	return fallback
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
