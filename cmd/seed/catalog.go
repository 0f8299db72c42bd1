package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type warehouseRow struct {
	ID      string
	Name    string
	Address string
}

type productRow struct {
	Code        string
	Name        string
	UnitMeasure string
	Price       decimal.Decimal
	Cost        decimal.Decimal
}

type purchaseRow struct {
	Reference   string
	ProductCode string
	WarehouseID string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Date        time.Time
}

// decoder envuelve r según la codificación del archivo; las hojas exportadas en Windows llegan en windows-1252.
func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "iso-8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("codificación no soportada %q", encoding)
	}
}

// readRows lee un CSV con encabezado y separador ';' o ','. Devuelve filas indexadas por columna.
func readRows(r io.Reader, encoding string, required ...string) ([]map[string]string, error) {
	dr, err := decoder(r, encoding)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(dr)
	if err != nil {
		return nil, err
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	cr := csv.NewReader(strings.NewReader(text))
	if first, _, _ := strings.Cut(text, "\n"); strings.Count(first, ";") > strings.Count(first, ",") {
		cr.Comma = ';'
	}
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("encabezado: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("falta la columna %q", name)
		}
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		row := make(map[string]string, len(cols))
		for name, i := range cols {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseAmount acepta "1234.5" y "1.234,5".
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

func parseWarehouses(r io.Reader, encoding string) ([]warehouseRow, error) {
	rows, err := readRows(r, encoding, "id", "name")
	if err != nil {
		return nil, err
	}
	out := make([]warehouseRow, 0, len(rows))
	for i, row := range rows {
		if row["id"] == "" || row["name"] == "" {
			return nil, fmt.Errorf("bodega fila %d: id y name son requeridos", i+2)
		}
		out = append(out, warehouseRow{ID: row["id"], Name: row["name"], Address: row["address"]})
	}
	return out, nil
}

func parseProducts(r io.Reader, encoding string) ([]productRow, error) {
	rows, err := readRows(r, encoding, "code", "name")
	if err != nil {
		return nil, err
	}
	out := make([]productRow, 0, len(rows))
	for i, row := range rows {
		if row["code"] == "" || row["name"] == "" {
			return nil, fmt.Errorf("producto fila %d: code y name son requeridos", i+2)
		}
		price, err := parseAmount(row["price"])
		if err != nil {
			return nil, fmt.Errorf("producto %s: price: %w", row["code"], err)
		}
		cost, err := parseAmount(row["cost"])
		if err != nil {
			return nil, fmt.Errorf("producto %s: cost: %w", row["code"], err)
		}
		if price.IsNegative() || cost.IsNegative() {
			return nil, fmt.Errorf("producto %s: precio y costo no pueden ser negativos", row["code"])
		}
		unit := row["unit_measure"]
		if unit == "" {
			unit = "unit"
		}
		out = append(out, productRow{Code: row["code"], Name: row["name"], UnitMeasure: unit, Price: price, Cost: cost})
	}
	return out, nil
}

func parsePurchases(r io.Reader, encoding string) ([]purchaseRow, error) {
	rows, err := readRows(r, encoding, "product_code", "warehouse_id", "quantity")
	if err != nil {
		return nil, err
	}
	out := make([]purchaseRow, 0, len(rows))
	for i, row := range rows {
		n := i + 2
		if row["product_code"] == "" {
			return nil, fmt.Errorf("compra fila %d: product_code requerido", n)
		}
		qty, err := parseAmount(row["quantity"])
		if err != nil {
			return nil, fmt.Errorf("compra fila %d: quantity: %w", n, err)
		}
		if !qty.IsPositive() {
			return nil, fmt.Errorf("compra fila %d: quantity debe ser positiva", n)
		}
		cost, err := parseAmount(row["unit_cost"])
		if err != nil {
			return nil, fmt.Errorf("compra fila %d: unit_cost: %w", n, err)
		}
		date := time.Now().UTC()
		if s := row["date"]; s != "" {
			if date, err = time.Parse(time.DateOnly, s); err != nil {
				return nil, fmt.Errorf("compra fila %d: date: %w", n, err)
			}
		}
		ref := row["reference"]
		if ref == "" {
			ref = fmt.Sprintf("SEED-%d", n)
		}
		out = append(out, purchaseRow{
			Reference:   ref,
			ProductCode: row["product_code"],
			WarehouseID: row["warehouse_id"],
			Quantity:    qty,
			UnitCost:    cost,
			Date:        date,
		})
	}
	return out, nil
}
