package products

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inventra/inventra/internal/catalog"
	"github.com/inventra/inventra/internal/shared"
)

// productForm holds raw form input so invalid values can be echoed back.
type productForm struct {
	Name        string `validate:"required,max=120"`
	SKU         string `validate:"required,max=64"`
	Cost        string `validate:"required,numeric"`
	Price       string `validate:"required,numeric"`
	Stock       string `validate:"required,number"`
	Category    string `validate:"required,max=80"`
	Supplier    string `validate:"required,max=120"`
	Description string `validate:"max=1000"`
}

type formField struct {
	Name  string
	Label string
}

// formFields maps struct fields to their input names and labels.
var formFields = map[string]formField{
	"Name":        {Name: "name", Label: "Nama"},
	"SKU":         {Name: "sku", Label: "SKU"},
	"Cost":        {Name: "cost", Label: "Harga Beli"},
	"Price":       {Name: "price", Label: "Harga Jual"},
	"Stock":       {Name: "stock", Label: "Stok"},
	"Category":    {Name: "category", Label: "Kategori"},
	"Supplier":    {Name: "supplier", Label: "Pemasok"},
	"Description": {Name: "description", Label: "Deskripsi"},
}

type formPageData struct {
	Editing    bool
	Heading    string
	Action     string
	CancelHref string
	Form       productForm
	Errors     map[string]string
}

func formFromRequest(r *http.Request) productForm {
	return productForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		SKU:         strings.TrimSpace(r.PostFormValue("sku")),
		Cost:        strings.TrimSpace(r.PostFormValue("cost")),
		Price:       strings.TrimSpace(r.PostFormValue("price")),
		Stock:       strings.TrimSpace(r.PostFormValue("stock")),
		Category:    strings.TrimSpace(r.PostFormValue("category")),
		Supplier:    strings.TrimSpace(r.PostFormValue("supplier")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
}

func formFromProduct(p catalog.Product) productForm {
	return productForm{
		Name:        p.Name,
		SKU:         p.SKU,
		Cost:        strconv.FormatFloat(p.Cost, 'f', -1, 64),
		Price:       strconv.FormatFloat(p.Price, 'f', -1, 64),
		Stock:       strconv.Itoa(p.Stock),
		Category:    p.Category,
		Supplier:    p.Supplier,
		Description: p.Description,
	}
}

// validate checks the form and converts it into an API payload. Errors are
// keyed by input name.
func (h *Handler) validate(form productForm) (catalog.ProductInput, map[string]string) {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				field := formFields[fieldErr.Field()]
				errs[field.Name] = fieldMessage(field.Label, fieldErr.Tag())
			}
		}
	}
	if len(errs) > 0 {
		return catalog.ProductInput{}, errs
	}

	cost, costErr := strconv.ParseFloat(form.Cost, 64)
	price, priceErr := strconv.ParseFloat(form.Price, 64)
	stock, stockErr := strconv.Atoi(form.Stock)
	switch {
	case costErr != nil:
		errs["cost"] = fieldMessage("Harga Beli", "numeric")
	case cost < 0:
		errs["cost"] = fieldMessage("Harga Beli", "gte")
	}
	switch {
	case priceErr != nil:
		errs["price"] = fieldMessage("Harga Jual", "numeric")
	case price < 0:
		errs["price"] = fieldMessage("Harga Jual", "gte")
	}
	if stockErr != nil {
		errs["stock"] = fieldMessage("Stok", "number")
	}
	if len(errs) > 0 {
		return catalog.ProductInput{}, errs
	}

	return catalog.ProductInput{
		Name:        form.Name,
		SKU:         form.SKU,
		Cost:        cost,
		Price:       price,
		Stock:       stock,
		Category:    form.Category,
		Supplier:    form.Supplier,
		Description: form.Description,
	}, nil
}

func fieldMessage(label, tag string) string {
	switch tag {
	case "required":
		return label + " wajib diisi."
	case "numeric":
		return label + " harus berupa angka."
	case "number":
		return label + " harus berupa bilangan bulat."
	case "gte":
		return label + " tidak boleh negatif."
	case "max":
		return label + " terlalu panjang."
	default:
		return fmt.Sprintf("%s tidak valid.", label)
	}
}

func (h *Handler) createPage(r *http.Request, form productForm, errs map[string]string) formPageData {
	query := h.returnQuery(r)
	return formPageData{
		Heading:    "Tambah Produk Baru",
		Action:     "/products?" + query,
		CancelHref: "/products?" + query,
		Form:       form,
		Errors:     errs,
	}
}

func (h *Handler) editPage(r *http.Request, id int64, form productForm, errs map[string]string) formPageData {
	query := h.returnQuery(r)
	return formPageData{
		Editing:    true,
		Heading:    "Edit Produk",
		Action:     "/products/" + strconv.FormatInt(id, 10) + "/edit?" + query,
		CancelHref: "/products?" + query,
		Form:       form,
		Errors:     errs,
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, data formPageData, flash *shared.FlashMessage, status int) {
	h.render(w, r, "pages/product_form.html", data.Heading, data, flash, status)
}
