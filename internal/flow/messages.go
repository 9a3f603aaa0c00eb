package flow

// Ответы сценария регистрации автомобиля
const (
	MsgVehicleStart = "🚗 Vamos cadastrar seu carro!\n\nResponda a sequência de perguntas e pare a qualquer momento digitando 'cancelar'.\n\nQual a *marca* do seu veículo? (Ex: Chevrolet, Fiat, Hyundai)"

	MsgCancelled       = "Ok, operação cancelada. 👍"
	MsgNothingToCancel = "Não há nenhuma operação em andamento para cancelar. Como posso ajudar?"
	MsgTextOnly        = "✋ Para garantir a precisão dos dados, o cadastro do veículo deve ser feito *apenas por texto*.\n\nPor favor, digite sua resposta."
	MsgEmptyAnswer     = "Não recebi nenhuma resposta. Por favor, digite o valor pedido."

	msgBrandTyped     = "Você digitou: \"*%s*\"\n\nEstá correto? Responda \"*sim*\" para confirmar, ou envie a marca novamente."
	msgBrandConfirmed = "✅ Marca confirmada!\n\nAgora, qual o *modelo* do seu carro? (Ex: Onix, Argo, HB20 Comfort Plus)"
	msgModelTyped     = "Modelo: \"*%s*\"\n\nEstá correto? (Responda \"*sim*\" ou envie novamente)"
	msgModelConfirmed = "✅ Modelo confirmado!\n\nQual o *ano* do seu carro? (Ex: 2022)"
	msgTextRetyped    = "Ok, entendi: \"*%s*\"\n\nCorreto? (Responda \"*sim*\" ou envie novamente)"

	msgYearInvalid      = "Opa, o ano parece inválido. Por favor, envie apenas o ano com 4 dígitos (ex: 2021)."
	msgYearInvalidAgain = "Este ano também parece inválido. Por favor, envie o ano com 4 dígitos (ex: 2021)."
	msgYearTyped        = "Ano: *%d*\n\nEstá correto? (Responda \"*sim*\" ou envie novamente)"
	msgYearRetyped      = "Ok, entendi: *%d*\n\nCorreto? (Responda \"*sim*\" ou envie novamente)"
	msgYearConfirmed    = "✅ Ano confirmado!\n\nPara finalizar, qual a *quilometragem (KM)* atual do painel?"

	msgMileageInvalid      = "Não entendi a quilometragem. Por favor, envie apenas os números (ex: 85000)."
	msgMileageInvalidAgain = "Este valor também parece inválido. Por favor, envie apenas os números (ex: 85000)."
	msgMileageTyped        = "Quilometragem: *%d KM*\n\nEstá correto? (Responda \"*sim*\" para finalizar o cadastro)"
	msgMileageRetyped      = "Ok, entendi: *%d KM*\n\nCorreto? (Responda \"*sim*\" para finalizar)"

	msgVehicleRegistered = "🚀 Prontinho! Seu *%s %s* foi cadastrado com sucesso."
)
