package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/services/connection"
)

const help = `Comandos:
  <texto>                  fala na mesa
  /mestre <texto>          fala como mestre
  /alvos                   lista os personagens conectados
  /atacar <alvo> [hab]     ataque básico ou habilidade de ataque
  /rolar <atributo>        2d10 + atributo (str, vit, agi, int, sense)
  /dados <expr>            rola uma expressão como 1d6+2
  /ficha                   mostra sua ficha
  /atributo <attr> <n>     define um atributo
  /nivel <n>               define o nível
  /ativar <id>             ativa título ou habilidade
  /desativar <id>          desativa título ou habilidade
  /equipar <id> <slot>     equipa item (main_hand, body, accessory_1, accessory_2)
  /desequipar <id>         remove item do slot
  /descansar               recupera HP, MP e fadiga
  /historico               recarrega o histórico
  /sair                    sai da sessão
`

type commands struct {
	conn *connection.Connection
	out  *printer
}

// run executes one input line and reports whether the client should quit
func (c *commands) run(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		_, err := c.conn.SendChat(ctx, line, false)
		return false, err
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	args := strings.Fields(rest)

	switch cmd {
	case "ajuda", "help":
		c.out.printf("%s", help)
	case "sair", "quit":
		return true, nil
	case "mestre":
		_, err := c.conn.SendChat(ctx, rest, true)
		return false, err
	case "alvos":
		c.targets()
	case "atacar":
		return false, c.attack(ctx, args)
	case "rolar":
		if len(args) != 1 {
			return false, fmt.Errorf("uso: /rolar <atributo>")
		}
		attr, err := character.ParseAttribute(args[0])
		if err != nil {
			return false, err
		}
		_, err = c.conn.RollAttribute(ctx, attr)
		return false, err
	case "dados":
		_, err := c.conn.RollDice(ctx, rest)
		return false, err
	case "ficha":
		c.sheet()
	case "atributo":
		return false, c.setAttribute(ctx, args)
	case "nivel":
		if len(args) != 1 {
			return false, fmt.Errorf("uso: /nivel <n>")
		}
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("nível inválido: %s", args[0])
		}
		return false, c.conn.Update(ctx, func(ch *character.Character) error {
			return ch.SetLevel(level)
		})
	case "ativar", "desativar":
		if len(args) != 1 {
			return false, fmt.Errorf("uso: /%s <id>", cmd)
		}
		return false, c.toggle(ctx, args[0], cmd == "ativar")
	case "equipar":
		if len(args) != 2 {
			return false, fmt.Errorf("uso: /equipar <id> <slot>")
		}
		return false, c.conn.Update(ctx, func(ch *character.Character) error {
			return ch.Equip(args[0], character.Slot(args[1]))
		})
	case "desequipar":
		if len(args) != 1 {
			return false, fmt.Errorf("uso: /desequipar <id>")
		}
		return false, c.conn.Update(ctx, func(ch *character.Character) error {
			return ch.Unequip(args[0])
		})
	case "descansar":
		return false, c.conn.Update(ctx, func(ch *character.Character) error {
			ch.Rest()
			return nil
		})
	case "historico":
		history, err := c.conn.LoadHistory(ctx)
		if err != nil {
			return false, err
		}
		for _, msg := range history {
			c.out.message(msg)
		}
	default:
		return false, fmt.Errorf("comando desconhecido: /%s", cmd)
	}
	return false, nil
}

func (c *commands) targets() {
	targets := c.conn.Targets()
	if len(targets) == 0 {
		c.out.printf("Ninguém mais está na mesa.\n")
		return
	}
	for _, p := range targets {
		ch := p.Character
		c.out.printf("  %s (%s nv %d) HP %d/%d MP %d/%d DEF %d\n",
			ch.Name, ch.Class, ch.Level, ch.CurrentHP, ch.MaxHP, ch.CurrentMP, ch.MaxMP, ch.Defense)
	}
}

func (c *commands) attack(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("uso: /atacar <alvo> [habilidade]")
	}
	abilityID := ""
	if len(args) == 2 {
		abilityID = args[1]
	}

	outcome, err := c.conn.Attack(ctx, args[0], abilityID)
	if err != nil {
		return err
	}
	if outcome.Damage == 0 {
		c.out.printf("   %s (%d + %d = %d contra DEF %d)\n",
			outcome.Result, outcome.RollTotal, outcome.AttackValue, outcome.AttackTotal, outcome.TargetDefense)
	}
	return nil
}

func (c *commands) setAttribute(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("uso: /atributo <attr> <n>")
	}
	attr, err := character.ParseAttribute(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("valor inválido: %s", args[1])
	}
	return c.conn.Update(ctx, func(ch *character.Character) error {
		return ch.SetAttribute(attr, value)
	})
}

func (c *commands) toggle(ctx context.Context, id string, on bool) error {
	return c.conn.Update(ctx, func(ch *character.Character) error {
		switch {
		case ch.FindTitle(id) != nil && on:
			return ch.ActivateTitle(id)
		case ch.FindTitle(id) != nil:
			if ch.IsTitleActive(id) {
				ch.DeactivateTitle()
			}
			return nil
		case on:
			return ch.ActivateAbility(id)
		default:
			return ch.DeactivateAbility(id)
		}
	})
}

func (c *commands) sheet() {
	ch := c.conn.Character()
	stats := ch.Stats()
	a := ch.Attributes

	c.out.printf("%s, %s nível %d\n", ch.Name, ch.Class, ch.Level)
	c.out.printf("  STR %d  VIT %d  AGI %d  INT %d  SENSE %d  (pontos livres %d)\n",
		a.Str, a.Vit, a.Agi, a.Int, a.Sense, ch.RemainingAttributePoints())
	c.out.printf("  HP %d/%d  MP %d/%d  Fadiga %d/%d\n",
		ch.CurrentHP, stats.MaxHP, ch.CurrentMP, stats.MaxMP, ch.Fatigue, character.MaxFatigue)
	c.out.printf("  Dano físico %d  Dano mágico %.1f  Ataque %d  Ataque mágico %d  Velocidade %d  Defesa %d\n",
		stats.PhysicalDamage, stats.MagicDamage, stats.Attack, stats.MagicAttack, stats.Speed, stats.Defense)

	for _, e := range ch.Equipment {
		slot := "-"
		if e.Equipped() {
			slot = string(e.Slot)
		}
		c.out.printf("  [%s] %s (%s, raridade %d) %s\n", e.ID, e.Name, e.Type, e.Rarity, slot)
	}
	for _, t := range ch.Titles {
		c.out.printf("  título [%s] %s ativo=%t\n", t.ID, t.Name, ch.IsTitleActive(t.ID))
	}
	for _, ab := range ch.Abilities {
		c.out.printf("  habilidade [%s] %s (%s) ativa=%t\n", ab.ID, ab.Name, ab.Type, ab.Passive() || ch.IsAbilityActive(ab.ID))
	}
}
