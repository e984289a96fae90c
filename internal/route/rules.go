// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package route

import "regexp"

// Keyword batteries per category (English, Spanish, Portuguese, French).
// They run against lower-cased, diacritic-free text.
var (
	inPersonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`card\s*(reader|terminal|machine)s?`),
		regexp.MustCompile(`\b(pos|point[\s-]of[\s-]sale)\b`),
		regexp.MustCompile(`\bin[\s-]?(store|person|shop)\b`),
		regexp.MustCompile(`\b(tap[\s-]to[\s-]pay|contactless|payment\s+terminal)\b`),
		regexp.MustCompile(`\bface[\s-]to[\s-]face\b`),
		// es
		regexp.MustCompile(`\b(datafono|tpv|lector\s+de\s+tarjetas?|terminal\s+de\s+pago|en\s+tienda|presencial(es|mente)?)\b`),
		// pt
		regexp.MustCompile(`\b(maquininha|maquina\s+de\s+cartao|leitor\s+de\s+cartao|na\s+loja|pagamento\s+presencial)\b`),
		// fr
		regexp.MustCompile(`\b(terminal\s+de\s+paiement|lecteur\s+de\s+cartes?|tpe|en\s+magasin|en\s+personne|sans\s+contact)\b`),
	}

	integrationsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bintegrat(e|es|ed|ion|ions|ing)\b`),
		regexp.MustCompile(`\b(api|sdk|webhooks?|plugins?|plug-ins?|connectors?)\b`),
		regexp.MustCompile(`\b(xero|quickbooks|sage|shopify|woocommerce|zapier|hubspot|salesforce|odoo|prestashop|magento)\b`),
		regexp.MustCompile(`\b(accounting|crm|erp)\s+(software|system|tool)s?\b`),
		// es
		regexp.MustCompile(`\b(integracion(es)?|integrar(lo|la)?|conector(es)?|software\s+de\s+contabilidad)\b`),
		// pt
		regexp.MustCompile(`\b(integracao|integracoes|integrar|conectar\s+com)\b`),
		// fr
		regexp.MustCompile(`\b(integrer|connecteurs?|logiciel\s+de\s+comptabilite)\b`),
	}

	onWebsitePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(web\s?site|webshop|web\s+shop|online\s+(store|shop|checkout|payments?))\b`),
		regexp.MustCompile(`\b(checkout|e-?commerce|payment\s+button|pay\s+button|embed(ded)?)\b`),
		// es
		regexp.MustCompile(`\b(sitio\s+web|pagina\s+web|tienda\s+(online|en\s+linea|virtual)|pagos?\s+(online|en\s+linea)|boton\s+de\s+pago)\b`),
		// pt
		regexp.MustCompile(`\b(loja\s+(virtual|online)|pagamentos?\s+online|botao\s+de\s+pagamento|no\s+site)\b`),
		// fr
		regexp.MustCompile(`\b(site\s+(web|internet)|boutique\s+en\s+ligne|paiements?\s+en\s+ligne|bouton\s+de\s+paiement)\b`),
	}

	paymentLinksPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(payment|pay)\s+links?\b`),
		regexp.MustCompile(`\b(invoices?|invoicing|deposits?|prepay(ment)?s?|upfront|up-front)\b`),
		regexp.MustCompile(`\b(in\s+advance|pay\s+ahead|before\s+the\s+(service|appointment|booking))\b`),
		// es
		regexp.MustCompile(`\b(enlaces?\s+de\s+pago|links?\s+de\s+pago|facturas?|por\s+adelantado|anticipos?|senal)\b`),
		// pt
		regexp.MustCompile(`\b(links?\s+de\s+pagamento|faturas?|adiantad[oa]|antecipad[oa]|sinal)\b`),
		// fr
		regexp.MustCompile(`\b(liens?\s+de\s+paiement|factures?|acomptes?|a\s+l'avance|d'avance)\b`),
	}
)

// DefaultRules returns the built-in batteries in priority order:
// in-person, integrations, on-website, payment-links.
func DefaultRules() []Rule {
	return []Rule{
		{Category: CategoryInPerson, Patterns: inPersonPatterns},
		{Category: CategoryIntegrations, Patterns: integrationsPatterns},
		{Category: CategoryOnWebsite, Patterns: onWebsitePatterns},
		{Category: CategoryPaymentLinks, Patterns: paymentLinksPatterns},
	}
}
