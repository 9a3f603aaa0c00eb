package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/driver_bot/internal/model"
	"github.com/ivanoskov/driver_bot/internal/service"
)

const (
	MsgHelp = `👋 Olá! Sou o *ADAP, seu Copiloto Financeiro*.

Estou aqui para te ajudar a saber se suas corridas estão dando lucro de verdade, de um jeito fácil e direto aqui no chat.

*O QUE VOCÊ PODE FAZER:*

⛽ *Lançar Gastos:*
   - "150 de gasolina"
   - "45 na troca de óleo"
   - "350 no aluguel do carro"

💰 *Lançar Ganhos (por plataforma):*
   - "ganhei 55 na uber"
   - "99 pagou 30 reais"
   - "10 de gorjeta"

📈 *Ver Resumos e Lucro:*
   - "resumo do mês"
   - "gastos por categoria"
   - "gráfico de lucro da semana"

🗓️ *Criar Lembretes:*
   - "lembrar de pagar o seguro dia 20"
   - "lembrete trocar o óleo daqui 30 minutos"

🚗 *Cadastrar seu carro:* "cadastrar carro"

É só me mandar uma mensagem que eu anoto tudo na hora! Vamos acelerar seu controle financeiro! 🚗💨`

	MsgBlocked          = "🚫 Você está bloqueado de usar a ADAP."
	MsgInternalError    = "Ops! 🤖 Tive um curto-circuito aqui. Se foi um áudio, tente gravar em um lugar mais silencioso."
	MsgAudioUnsupported = "🎙️ Ainda não consigo ouvir áudios por aqui. Por favor, envie sua mensagem por texto."

	MsgNoReportContext  = "Não há um relatório recente para detalhar. Peça um resumo de gastos ou receitas primeiro."
	MsgSpecifyDetails   = "Por favor, especifique o que deseja detalhar. Ex: \"detalhes gastos\" ou \"detalhes receitas\"."
	MsgDetailsPreparing = "🧾 Certo! Estou preparando os detalhes, já te envio."
	MsgNoExpenseDetails = "Nenhum gasto encontrado para este período."
	MsgNoIncomeDetails  = "Nenhum ganho encontrado para este período."
	MsgNoChartData      = "📉 Ainda não há lançamentos suficientes para gerar este gráfico."
	MsgNoReminders      = "Você não tem nenhum lembrete futuro agendado. 👍"

	msgInvalidAmount   = "🤔 Não consegui identificar o valor. Tente algo como \"150 de gasolina\"."
	msgDistanceNeeded  = "🛣️ Para anotar uma corrida, preciso saber a distância percorrida. Ex: \"ganhei 25 na uber, corrida de 12 km\"."
	msgMessageIDNeeded = "🆔 Informe o ID do registro. Ex: \"apagar #a4b8c\"."
	msgReminderDate    = "📅 Não entendi a data do lembrete. Ex: \"lembrar de pagar o seguro dia 20\"."
	msgReminderPast    = "⏳ Essa data já passou. Escolha um momento no futuro para o lembrete."
	msgInvalidMonth    = "📅 Não entendi o mês pedido. Ex: \"resumo de maio\"."
	msgIDExhausted     = "Ops! Não consegui gerar um ID para este registro. Tente novamente em instantes."
)

const dateLayout = "02/01/2006"

func formatMoney(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func incomeAddedMessage(inc *model.Income) string {
	var b strings.Builder
	source := ""
	if inc.Source != model.Other {
		source = " da " + inc.Source
	}
	fmt.Fprintf(&b, "💰 *Ganho anotado%s!*\n📌 %s\n✅ *%s* (Bruto)", source, capitalize(inc.Description), formatMoney(inc.Amount))

	distance := "_Não informado_"
	if inc.Distance != nil {
		distance = fmt.Sprintf("*%s km*", inc.Distance.String())
	}
	tax := "_Não informado_"
	if inc.Tax != nil {
		tax = fmt.Sprintf("*%s*", formatMoney(*inc.Tax))
	}
	fmt.Fprintf(&b, "\n\n*Detalhes da Corrida:*\n🛣️ Distância: %s\n💸 Taxa App: %s", distance, tax)
	if inc.Tax != nil {
		fmt.Fprintf(&b, "\n➡️ Líquido: *%s*", formatMoney(inc.Net()))
	}

	fmt.Fprintf(&b, "\n\n🆔 #%s", inc.MessageID)
	return b.String()
}

func expenseAddedMessage(exp *model.Expense) string {
	return fmt.Sprintf("💸 *Gasto anotado!*\n📌 %s (_%s_)\n❌ *%s*\n🆔 #%s",
		capitalize(exp.Description), exp.Category, formatMoney(exp.Amount), exp.MessageID)
}

func transactionDeletedMessage(d *service.DeletedTransaction) string {
	if d.Kind == model.KindIncome {
		return fmt.Sprintf("🗑️ Ganho _#%s_ removido.", d.MessageID)
	}
	return fmt.Sprintf("🗑️ Gasto _#%s_ removido.", d.MessageID)
}

func transactionNotFoundMessage(messageID string) string {
	return fmt.Sprintf("🚫 Nenhum registro encontrado com o ID _#%s_ para exclusão.", messageID)
}

func reminderAddedMessage(r *model.Reminder, loc *time.Location) string {
	return fmt.Sprintf("*Lembrete agendado!* ✅\n%s *%s:* %s\n📅 *Data:* %s\n🆔 #%s",
		r.Emoji(), r.Type, r.Description, r.Date.In(loc).Format(dateLayout+" 15:04"), r.MessageID)
}

func reminderDeletedMessage(r *model.Reminder) string {
	return fmt.Sprintf("🗑️ Lembrete _#%s_ removido.", r.MessageID)
}

func reminderNotFoundMessage(messageID string) string {
	return fmt.Sprintf("🚫 Nenhum lembrete com o ID _#%s_ foi encontrado.", messageID)
}

func reminderListMessage(reminders []model.Reminder, loc *time.Location) string {
	if len(reminders) == 0 {
		return MsgNoReminders
	}
	lines := make([]string, 0, len(reminders))
	for _, r := range reminders {
		lines = append(lines, fmt.Sprintf("%s *%s:* %s - *%s* (#%s)",
			r.Emoji(), r.Type, r.Description, r.Date.In(loc).Format(dateLayout), r.MessageID))
	}
	return "Aqui estão seus próximos lembretes:\n\n" + strings.Join(lines, "\n") +
		"\n\nPara apagar um, digite \"apagar lembrete #id\"."
}

func summaryMessage(s *service.Summary) string {
	month := s.Month.Name()
	switch {
	case s.Source != "":
		return fmt.Sprintf("💰 Ganhos com *%s* em _%s_: *%s*", s.Source, month, formatMoney(s.Income))
	case s.Category != "":
		return fmt.Sprintf("💸 Gastos com *%s* em _%s_: *%s*", s.Category, month, formatMoney(s.Expenses))
	}

	profit := s.Profit()
	emoji := "✅"
	if profit.IsNegative() {
		emoji = "❌"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Resumo de %s*:\n\n", month)
	fmt.Fprintf(&b, "💰 Ganhos: %s\n", formatMoney(s.Income))
	fmt.Fprintf(&b, "💸 Gastos: %s\n", formatMoney(s.Expenses))
	b.WriteString("----------\n")
	fmt.Fprintf(&b, "%s *Lucro: %s*", emoji, formatMoney(profit))
	return b.String()
}

func breakdownMessage(kind model.ReportKind, b *service.Breakdown) string {
	month := b.Month.Name()
	if len(b.Items) == 0 {
		if kind == model.ReportIncomes {
			return fmt.Sprintf("Você não tem nenhuma receita registrada em *%s*.", month)
		}
		return fmt.Sprintf("Você não tem nenhum gasto registrado em *%s*.", month)
	}

	var sb strings.Builder
	if kind == model.ReportIncomes {
		fmt.Fprintf(&sb, "*Ganhos de %s por Plataforma* 💰\n\n", month)
	} else {
		fmt.Fprintf(&sb, "*Gastos de %s por Categoria* 💸\n\n", month)
	}
	for _, item := range b.Items {
		fmt.Fprintf(&sb, "*%s*: %s\n", item.Name, formatMoney(item.Total))
	}
	if kind == model.ReportIncomes {
		fmt.Fprintf(&sb, "\n*Total Recebido:* %s", formatMoney(b.Total))
		sb.WriteString("\n\n_Digite \"detalhes receitas\" para ver a lista completa._")
	} else {
		fmt.Fprintf(&sb, "\n*Total Gasto:* %s", formatMoney(b.Total))
		sb.WriteString("\n\n_Digite \"detalhes gastos\" para ver a lista completa._")
	}
	return sb.String()
}

func detailsMessage(d *service.Details) string {
	income := d.Kind == model.ReportIncomes
	if len(d.Groups) == 0 {
		if income {
			return MsgNoIncomeDetails
		}
		return MsgNoExpenseDetails
	}

	title, emoji := "Gastos", "💸"
	if income {
		title, emoji = "Ganhos", "💰"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧾 *Detalhes dos %s em %s*:\n\n", title, d.Month.Name())
	for _, group := range d.Groups {
		fmt.Fprintf(&b, "*%s*:\n", group.Name)
		for _, entry := range group.Entries {
			fmt.Fprintf(&b, "   %s %s: *%s* (#%s)\n", emoji, entry.Description, formatMoney(entry.Amount), entry.MessageID)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func profitChartAck(days int) string {
	return fmt.Sprintf("📈 Certo! Gerando o gráfico de lucratividade dos últimos %d dias...", days)
}

func profitChartCaption(report []service.DailyProfit) string {
	total := decimal.Zero
	for _, day := range report {
		total = total.Add(day.Profit())
	}
	return fmt.Sprintf("📈 Lucro dos últimos %d dias: *%s*", len(report), formatMoney(total))
}

func platformChartAck(window service.MonthWindow) string {
	return fmt.Sprintf("📊 Certo! Gerando o gráfico de ganhos por plataforma de %s...", window.Name())
}

func platformChartCaption(b *service.Breakdown) string {
	return fmt.Sprintf("📊 Ganhos de %s por plataforma: *%s*", b.Month.Name(), formatMoney(b.Total))
}
