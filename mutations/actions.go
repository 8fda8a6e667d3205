package mutations

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"luchaserver/enrich"
	"luchaserver/models"
	"luchaserver/normalize"
	"luchaserver/planner"
)

// Action is one row of the mutation table. Body validates the input and
// builds the payload with the exact key casing each endpoint expects; a
// non-nil error is shown to the user and nothing is sent.
type Action struct {
	Name    string
	Method  string
	Path    func(in Input) string
	Body    func(in Input) (any, error)
	Success func(in Input) string
	Failure string
	// Confirm gates the call on an explicit confirmation; Prompt is shown.
	Confirm bool
	Prompt  string
	// Page is refetched after a successful call, PageID names the input
	// key holding its id when the page needs one.
	Page   string
	PageID string
	// Target names the input key that identifies the affected entity.
	Target string
}

func invalid(msg string) error { return errors.New(msg) }

func static(path string) func(Input) string {
	return func(Input) string { return path }
}

// withID appends the escaped value of key to prefix.
func withID(prefix, key string) func(Input) string {
	return func(in Input) string { return prefix + url.PathEscape(in.Str(key)) }
}

func fixed(msg string) func(Input) string {
	return func(Input) string { return msg }
}

func need(in Input, key, msg string) error {
	if in.Str(key) == "" {
		return invalid(msg)
	}
	return nil
}

// Lookup returns the action a role may perform under name.
func Lookup(role models.Role, name string) (Action, bool) {
	a, ok := table[role][name]
	return a, ok
}

// Names lists the actions available to role.
func Names(role models.Role) []string {
	names := make([]string, 0, len(table[role]))
	for n := range table[role] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var table = map[models.Role]map[string]Action{
	models.RoleAdmin:    index(adminActions()),
	models.RoleDictator: index(append(sharedActions(models.RoleDictator), dictatorActions()...)),
	models.RoleSponsor:  index(append(sharedActions(models.RoleSponsor), sponsorActions()...)),
}

func index(list []Action) map[string]Action {
	m := make(map[string]Action, len(list))
	for _, a := range list {
		m[a.Name] = a
	}
	return m
}

// 管理者の操作
func adminActions() []Action {
	return []Action{
		{
			Name:   "approve-battle",
			Method: http.MethodPost,
			Path:   static("/admin/Aprove-Battles"),
			Body: func(in Input) (any, error) {
				if err := need(in, "battleId", "Batalla no especificada"); err != nil {
					return nil, err
				}
				return map[string]any{"battleId": in.Str("battleId")}, nil
			},
			Success: fixed("Batalla aprobada exitosamente"),
			Failure: "Error al aprobar batalla",
			Page:    planner.PageBattles,
			Target:  "battleId",
		},
		{
			Name:   "start-battle",
			Method: http.MethodPost,
			Path:   withID("/admin/start/", "battleId"),
			Body: func(in Input) (any, error) {
				return nil, need(in, "battleId", "Batalla no especificada")
			},
			Success: fixed("Batalla iniciada exitosamente"),
			Failure: "Error al iniciar batalla",
			Page:    planner.PageBattles,
			Target:  "battleId",
		},
		{
			Name:   "close-battle",
			Method: http.MethodPost,
			Path:   withID("/admin/Close/", "battleId"),
			Body: func(in Input) (any, error) {
				if err := need(in, "battleId", "Batalla no especificada"); err != nil {
					return nil, err
				}
				if err := need(in, "winnerId", "Debes seleccionar un ganador"); err != nil {
					return nil, err
				}
				return map[string]any{
					"winnerId":      in.Str("winnerId"),
					"deathOccurred": in.Bool("deathOccurred"),
				}, nil
			},
			Success: fixed("Batalla finalizada exitosamente"),
			Failure: "Error al cerrar batalla",
			Page:    planner.PageBattles,
			Target:  "battleId",
		},
		registerUser("create-dictator", "/admin/register-dictator", "Dictador"),
		registerUser("create-sponsor", "/admin/register-sponsor", "Sponsor"),
		{
			Name:   "unlock-user",
			Method: http.MethodPost,
			Path:   static("/admin/unlock-user"),
			Body: func(in Input) (any, error) {
				if err := need(in, "userId", "Usuario no especificado"); err != nil {
					return nil, err
				}
				return map[string]any{"userId": in.Str("userId")}, nil
			},
			Success: func(in Input) string {
				return fmt.Sprintf("Usuario \"%s\" desbloqueado exitosamente", in.StrOr("username", in.Str("userId")))
			},
			Failure: "Error al desbloquear usuario",
			Confirm: true,
			Prompt:  "¿Desbloquear este usuario?",
			Page:    planner.PageUsers,
			Target:  "userId",
		},
		{
			Name:   "delete-user",
			Method: http.MethodDelete,
			Path:   withID("/admin/users/", "userId"),
			Body: func(in Input) (any, error) {
				return nil, need(in, "userId", "Usuario no especificado")
			},
			Success: func(in Input) string {
				if name := in.Str("username"); name != "" {
					return fmt.Sprintf("Usuario \"%s\" eliminado exitosamente", name)
				}
				return "Usuario eliminado exitosamente"
			},
			Failure: "Error al eliminar usuario",
			Confirm: true,
			Prompt:  "¿Estás seguro de que quieres eliminar este usuario? Esta acción no se puede deshacer.",
			Page:    planner.PageUsers,
			Target:  "userId",
		},
	}
}

func registerUser(name, path, label string) Action {
	return Action{
		Name:   name,
		Method: http.MethodPost,
		Path:   static(path),
		Body: func(in Input) (any, error) {
			if in.Str("username") == "" || in.Str("password") == "" {
				return nil, invalid("Usuario y contraseña son requeridos")
			}
			if in.Has("confirmPassword") && in.Str("confirmPassword") != in.Str("password") {
				return nil, invalid("Las contraseñas no coinciden")
			}
			return map[string]any{"username": in.Str("username"), "password": in.Str("password")}, nil
		},
		Success: func(in Input) string {
			return fmt.Sprintf("%s \"%s\" creado exitosamente", label, in.Str("username"))
		},
		Failure: "Error al crear usuario",
		Page:    planner.PageUsers,
		Target:  "username",
	}
}

// sharedActions are the operations dictators and sponsors both have. Only
// endpoints and a few messages differ.
func sharedActions(role models.Role) []Action {
	capab, _ := planner.For(role)
	success := ""
	if role == models.RoleSponsor {
		success = "¡Éxito! "
	}

	actions := []Action{
		{
			Name:   "place-bet",
			Method: http.MethodPost,
			Path:   static(capab.PlaceBet),
			Body: func(in Input) (any, error) {
				if err := need(in, "battleId", "Batalla no especificada"); err != nil {
					return nil, err
				}
				if err := need(in, "predictedWinner", "Selecciona un ganador"); err != nil {
					return nil, err
				}
				amount, err := betAmount(in)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"battleId":        in.Str("battleId"),
					"predictedWinner": in.Str("predictedWinner"),
					"amount":          amount,
				}, nil
			},
			Success: func(in Input) string {
				amount, _ := betAmount(in)
				return fmt.Sprintf("Apuesta de $%d realizada exitosamente", amount)
			},
			Failure: "Error al realizar apuesta",
			Page:    planner.PageBets,
			Target:  "battleId",
		},
		{
			Name:   "add-item",
			Method: http.MethodPost,
			Path:   static(capab.AddItem),
			Body: func(in Input) (any, error) {
				if err := need(in, "itemName", "El nombre del item es requerido"); err != nil {
					return nil, err
				}
				if in.IntOr("quantity", 1) <= 0 {
					return nil, invalid("La cantidad debe ser mayor a 0")
				}
				return map[string]any{
					"itemName": in.Str("itemName"),
					"category": in.StrOr("category", "weapon"),
					"quantity": in.IntOr("quantity", 1),
				}, nil
			},
			Success: func(in Input) string {
				return fmt.Sprintf("%s%d unidad(es) de \"%s\" añadida(s) a tu inventario.", success, in.IntOr("quantity", 1), in.Str("itemName"))
			},
			Failure: "Error al añadir item",
			Page:    planner.PageInventory,
			Target:  "itemName",
		},
		{
			Name:   "delete-item",
			Method: http.MethodDelete,
			Path:   static(capab.DeleteItem),
			Body: func(in Input) (any, error) {
				if err := need(in, "item_id", "Item no especificado"); err != nil {
					return nil, err
				}
				return map[string]any{"item_id": in.Str("item_id")}, nil
			},
			Success: func(in Input) string {
				return fmt.Sprintf("Item \"%s\" eliminado del inventario.", in.StrOr("itemName", in.Str("item_id")))
			},
			Failure: "Error al eliminar item",
			Confirm: true,
			Prompt:  "¿Estás seguro de que quieres eliminar este item del inventario?",
			Page:    planner.PageInventory,
			Target:  "item_id",
		},
		{
			Name:   "give-item",
			Method: http.MethodPost,
			Path:   static(capab.GiveItem),
			Body: func(in Input) (any, error) {
				if err := need(in, "contestantId", "Selecciona un contestant"); err != nil {
					return nil, err
				}
				if err := need(in, "itemName", "Selecciona un arma"); err != nil {
					return nil, err
				}
				if in.Has("category") && in.Str("category") != "weapon" {
					return nil, invalid("Solo se pueden entregar armas")
				}
				return map[string]any{"contestantId": in.Str("contestantId"), "itemName": in.Str("itemName")}, nil
			},
			Success: func(in Input) string {
				if role == models.RoleSponsor {
					return "Arma donada: " + in.Str("itemName")
				}
				return fmt.Sprintf("Weapon \"%s\" entregada exitosamente a %s.", in.Str("itemName"), contestantName(in))
			},
			Failure: map[models.Role]string{
				models.RoleDictator: "Error al dar item",
				models.RoleSponsor:  "Error al donar arma",
			}[role],
			Target: "contestantId",
		},
		applyBuff(role, capab),
		buyItem(role, capab),
		{
			Name:   "activate",
			Method: http.MethodPost,
			Path:   static("/auth/activate"),
			Body: func(in Input) (any, error) {
				if role == models.RoleSponsor {
					if err := need(in, "company_name", "El nombre de la compañía es requerido"); err != nil {
						return nil, err
					}
					return map[string]any{"company_name": in.Str("company_name")}, nil
				}
				if in.Str("name") == "" || in.Str("territory") == "" {
					return nil, invalid("Nombre y territorio son requeridos")
				}
				return map[string]any{"name": in.Str("name"), "territory": in.Str("territory")}, nil
			},
			Success: fixed("Cuenta activada exitosamente"),
			Failure: "Error al activar cuenta",
		},
	}
	for i := range actions {
		if actions[i].Name == "give-item" || actions[i].Name == "apply-buff" {
			actions[i].Page, actions[i].PageID = givePage(role)
		}
	}
	return actions
}

func givePage(role models.Role) (page, id string) {
	if role == models.RoleSponsor {
		return planner.PageBattles, ""
	}
	return planner.PageContestant, "contestantId"
}

func applyBuff(role models.Role, capab planner.Capability) Action {
	return Action{
		Name:   "apply-buff",
		Method: http.MethodPost,
		Path:   static(capab.ApplyBuff),
		Body: func(in Input) (any, error) {
			if err := need(in, "contestantId", "Selecciona un contestant"); err != nil {
				return nil, err
			}
			if err := need(in, "item_name", "Selecciona un buff"); err != nil {
				return nil, err
			}
			if in.Has("category") && in.Str("category") != "buff" {
				return nil, invalid("Solo se pueden aplicar buffs")
			}
			body := map[string]any{
				"contestantId":   in.Str("contestantId"),
				"item_name":      in.Str("item_name"),
				"strength_boost": in.Int("strength_boost"),
				"agility_boost":  in.Int("agility_boost"),
				"duration":       in.IntOr("duration", 1),
			}
			if role == models.RoleSponsor {
				if err := need(in, "battleId", "Batalla no especificada"); err != nil {
					return nil, err
				}
				body["battleId"] = in.Str("battleId")
			}
			return body, nil
		},
		Success: func(in Input) string {
			if role == models.RoleSponsor {
				return fmt.Sprintf("Buff aplicado: %s (+%d fuerza, +%d agilidad, %d turnos)",
					in.Str("item_name"), in.Int("strength_boost"), in.Int("agility_boost"), in.IntOr("duration", 1))
			}
			return fmt.Sprintf("Buff \"%s\" aplicado exitosamente a %s.", in.Str("item_name"), contestantName(in))
		},
		Failure: "Error al aplicar buff",
		Target:  "contestantId",
	}
}

func buyItem(role models.Role, capab planner.Capability) Action {
	a := Action{
		Name:    "buy-item",
		Method:  http.MethodPost,
		Path:    static(capab.BuyItem),
		Failure: "Error al comprar item",
		Confirm: true,
		Prompt:  "¿Confirmas la compra de este item?",
		Page:    planner.PageBlackMarket,
	}
	if role == models.RoleDictator {
		a.Target = "transactionId"
		a.Body = func(in Input) (any, error) {
			if err := need(in, "transactionId", "Item no especificado"); err != nil {
				return nil, err
			}
			return map[string]any{"transactionId": in.Str("transactionId")}, nil
		}
		a.Success = func(in Input) string {
			return fmt.Sprintf("Item \"%s\" comprado exitosamente y agregado a tu inventario.", in.StrOr("item", in.Str("transactionId")))
		}
		return a
	}

	a.Target = "item_id"
	a.Body = func(in Input) (any, error) {
		if err := need(in, "item_id", "Item no especificado"); err != nil {
			return nil, err
		}
		if in.Has("stock") && in.Int("stock") <= 0 {
			return nil, invalid("Este item está agotado")
		}
		if in.Has("balance") && in.Has("price") && in.Num("balance") < in.Num("price") {
			return nil, invalid("No tienes suficiente dinero para comprar este item")
		}
		return map[string]any{"item_id": in.Str("item_id"), "quantity": 1}, nil
	}
	a.Success = func(in Input) string {
		if name := in.Str("item"); name != "" {
			return fmt.Sprintf("Item \"%s\" comprado exitosamente", name)
		}
		return "Item comprado exitosamente"
	}
	return a
}

// ディクテーター専用
func dictatorActions() []Action {
	contestantBody := func(in Input) (any, error) {
		if err := need(in, "name", "El nombre es requerido"); err != nil {
			return nil, err
		}
		return map[string]any{
			"name":     in.Str("name"),
			"nickname": in.Str("nickname"),
			"health":   in.IntOr("health", 100),
			"strength": in.IntOr("strength", 50),
			"agility":  in.IntOr("agility", 50),
		}, nil
	}

	return []Action{
		{
			Name:   "propose-battle",
			Method: http.MethodPost,
			Path:   static("/dictator/propose-battle"),
			Body: func(in Input) (any, error) {
				c1, c2 := in.Str("contestant1"), in.Str("contestant2")
				if c1 == "" || c2 == "" {
					return nil, invalid("Selecciona ambos gladiadores")
				}
				if c1 == c2 {
					return nil, invalid("Un gladiador no puede enfrentarse a sí mismo")
				}
				return map[string]any{"contestant1": c1, "contestant2": c2}, nil
			},
			Success: func(in Input) string {
				opponent := in.StrOr("opponentName", enrich.FallbackName(enrich.GladiatorPrefix, in.Str("contestant2")))
				return fmt.Sprintf("¡Batalla propuesta exitosamente! Tu gladiador se enfrentará a %s en la arena.", opponent)
			},
			Failure: "Error al proponer batalla",
			Page:    planner.PageBattles,
			Target:  "contestant2",
		},
		{
			Name:   "create-contestant",
			Method: http.MethodPost,
			Path:   static("/dictator/add-contestants"),
			Body:   contestantBody,
			Success: func(in Input) string {
				return fmt.Sprintf("Contestant \"%s\" creado exitosamente.", in.Str("name"))
			},
			Failure: "Error al crear contestant",
			Page:    planner.PageContestants,
			Target:  "name",
		},
		{
			Name:   "edit-contestant",
			Method: http.MethodPut,
			Path:   withID("/dictator/contestants/", "contestantId"),
			Body: func(in Input) (any, error) {
				if err := need(in, "contestantId", "Contestant no especificado"); err != nil {
					return nil, err
				}
				return contestantBody(in)
			},
			Success: func(in Input) string {
				return fmt.Sprintf("Contestant \"%s\" actualizado exitosamente.", in.Str("name"))
			},
			Failure: "Error al actualizar contestant",
			Page:    planner.PageContestants,
			Target:  "contestantId",
		},
		{
			Name:   "release-contestant",
			Method: http.MethodDelete,
			Path:   withID("/dictator/Release-contestants/", "contestantId"),
			Body: func(in Input) (any, error) {
				return nil, need(in, "contestantId", "Contestant no especificado")
			},
			Success: func(in Input) string {
				return fmt.Sprintf("Contestant \"%s\" ha sido liberado exitosamente.", contestantName(in))
			},
			Failure: "Error al liberar contestant",
			Confirm: true,
			Prompt:  "¿Estás seguro de que quieres liberar este contestant? Esta acción no se puede deshacer.",
			Page:    planner.PageContestants,
			Target:  "contestantId",
		},
	}
}

// スポンサー専用
func sponsorActions() []Action {
	return []Action{
		{
			Name:   "sponsor-contestant",
			Method: http.MethodPost,
			Path:   static("/sponsor/sponsor-contestant"),
			Body: func(in Input) (any, error) {
				if err := need(in, "contestant_id", "Selecciona un contestant"); err != nil {
					return nil, err
				}
				if err := need(in, "item_id", "Selecciona un item"); err != nil {
					return nil, err
				}
				if in.IntOr("amount", 1) <= 0 {
					return nil, invalid("La cantidad debe ser mayor a 0")
				}
				return map[string]any{
					"contestant_id": in.Str("contestant_id"),
					"item_id":       in.Str("item_id"),
					"amount":        in.IntOr("amount", 1),
				}, nil
			},
			Success: func(in Input) string {
				if name := in.Str("contestantName"); name != "" {
					return fmt.Sprintf("Patrocinio a \"%s\" realizado exitosamente", name)
				}
				return "Patrocinio realizado exitosamente"
			},
			Failure: "Error al patrocinar contestant",
			Page:    planner.PageContestants,
			Target:  "contestant_id",
		},
		{
			Name:   "offer-item",
			Method: http.MethodPost,
			Path:   static("/sponsor/blackmarket/offer-item"),
			Body: func(in Input) (any, error) {
				if err := need(in, "item_id", "Selecciona un item"); err != nil {
					return nil, err
				}
				if in.Num("price") <= 0 {
					return nil, invalid("El precio debe ser mayor a 0")
				}
				qty := in.IntOr("quantity", 1)
				if qty <= 0 {
					return nil, invalid("La cantidad debe ser mayor a 0")
				}
				if in.Has("owned") {
					owned := in.Int("owned")
					if owned <= 0 {
						return nil, invalid("No tienes unidades de este item para vender")
					}
					if qty > owned {
						return nil, invalid(fmt.Sprintf("Solo tienes %d unidad(es) de este item", owned))
					}
				}
				return map[string]any{"item_id": in.Str("item_id"), "price": in.Num("price"), "quantity": qty}, nil
			},
			Success: func(in Input) string {
				return fmt.Sprintf("¡Éxito! %d unidad(es) de \"%s\" puesta(s) en venta por $%s cada una.",
					in.IntOr("quantity", 1), in.StrOr("itemName", in.Str("item_id")), normalize.Str(in.Num("price")))
			},
			Failure: "Error del servidor",
			Page:    planner.PageInventory,
			Target:  "item_id",
		},
	}
}

func betAmount(in Input) (int, error) {
	amount := in.Num("amount")
	if amount < planner.MinBet {
		return 0, invalid(fmt.Sprintf("La apuesta mínima es $%d", planner.MinBet))
	}
	if amount > planner.MaxBet {
		return 0, invalid(fmt.Sprintf("La apuesta máxima es $%d", planner.MaxBet))
	}
	return snap(amount, planner.BetStep), nil
}

func contestantName(in Input) string {
	if name := in.Str("contestantName"); name != "" {
		return name
	}
	return enrich.FallbackName(enrich.GladiatorPrefix, in.Str("contestantId"))
}
