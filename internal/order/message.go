package order

import (
	"fmt"
	"strings"

	"finitefield.org/storefront/internal/cart"
	"finitefield.org/storefront/internal/format"
)

// ItemLine renders "<quantity> <unit> <name> - <currency> <line total>".
func ItemLine(it cart.Item, currency string) string {
	return fmt.Sprintf("%d %s %s - %s", it.Quantity, it.Unit, it.Name, format.FmtCurrency(cart.LineTotal(it), currency))
}

// Summary is the confirmation prompt shown before the modal opens.
func Summary(items []cart.Item, currency string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, ItemLine(it, currency))
	}
	return "🛒 Seu carrinho contém:\n\n" + strings.Join(lines, "\n") + "\n\nDeseja finalizar o pedido?"
}

// Message builds the text sent to the shop. Items are read from the cart model.
func Message(f Form, items []cart.Item, currency string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, ItemLine(it, currency))
	}
	var b strings.Builder
	b.WriteString("📦 *Pedido Realizado!*\n\n")
	fmt.Fprintf(&b, "👤 *Nome:* %s\n", f.Name)
	fmt.Fprintf(&b, "🏠 *Endereço:* %s\n", f.Address)
	fmt.Fprintf(&b, "💳 *Forma de Pagamento:* %s\n\n", f.Payment)
	b.WriteString("🛒 *Itens:* \n- ")
	b.WriteString(strings.Join(lines, "\n- "))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "💰 *Total:* %s\n\n", format.FmtCurrency(cart.Total(items), currency))
	b.WriteString("Obrigado pela compra!")
	return b.String()
}
