package extraction

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Engine", func() {
	var (
		lines  []string
		record Record
	)

	JustBeforeEach(func() {
		record = Extract(lines)
	})

	Describe("raw text", func() {
		When("lines are present", func() {
			BeforeEach(func() {
				lines = []string{"ACME", "", "Total 1.00"}
			})

			It("should join the lines verbatim", func() {
				Expect(record.RawText).To(Equal("ACME\n\nTotal 1.00"))
			})
		})

		When("the sequence is empty", func() {
			BeforeEach(func() {
				lines = []string{}
			})

			It("should return an empty raw text", func() {
				Expect(record.RawText).To(BeEmpty())
			})

			It("should leave every field absent", func() {
				Expect(record.MerchantName).To(BeEmpty())
				Expect(record.InvoiceNumber).To(BeEmpty())
				Expect(record.PurchaseDate).To(BeNil())
				Expect(record.TotalAmount).To(BeNil())
			})

			It("should return an empty, non-nil item list", func() {
				Expect(record.Items).NotTo(BeNil())
				Expect(record.Items).To(BeEmpty())
			})
		})

		When("the sequence is nil", func() {
			BeforeEach(func() {
				lines = nil
			})

			It("should not panic and return an empty raw text", func() {
				Expect(record.RawText).To(BeEmpty())
			})
		})
	})

	Describe("total amount", func() {
		When("a labeled total is present", func() {
			BeforeEach(func() {
				lines = []string{"Widget 2 x 3.49", "Tax 0.70", "Total: 7.68"}
			})

			It("should use the labeled amount", func() {
				Expect(record.TotalAmount).NotTo(BeNil())
				Expect(record.TotalAmount.StringFixed(2)).To(Equal("7.68"))
			})
		})

		When("a larger unlabeled amount exists", func() {
			BeforeEach(func() {
				lines = []string{"Widget 2 x 99.00", "Total: 7.68"}
			})

			It("should prefer the label over the maximum", func() {
				Expect(record.TotalAmount.StringFixed(2)).To(Equal("7.68"))
			})
		})

		When("no label is present", func() {
			BeforeEach(func() {
				lines = []string{"Corner Store", "Coffee 12.50", "Bagel 3.00", "Catering 45.00"}
			})

			It("should fall back to the largest amount", func() {
				Expect(record.TotalAmount.StringFixed(2)).To(Equal("45.00"))
			})
		})

		When("the label is only near the top of a long receipt", func() {
			BeforeEach(func() {
				lines = []string{"Total 1.00"}
				for i := 0; i < 12; i++ {
					lines = append(lines, "Line 2.00")
				}
			})

			It("should ignore the label outside the bottom window", func() {
				Expect(record.TotalAmount.StringFixed(2)).To(Equal("2.00"))
			})
		})

		When("amounts use grouping and a currency symbol", func() {
			BeforeEach(func() {
				lines = []string{"FURNITURE CO", "Grand Total: $1,234.56"}
			})

			It("should normalize the labeled amount", func() {
				Expect(record.TotalAmount.StringFixed(2)).To(Equal("1234.56"))
			})
		})

		When("the label is part of a larger word", func() {
			BeforeEach(func() {
				lines = []string{"Subtotal 5.00", "Tip 9.00"}
			})

			It("should not treat it as a label", func() {
				Expect(record.TotalAmount.StringFixed(2)).To(Equal("9.00"))
			})
		})

		When("no amount-shaped token exists", func() {
			BeforeEach(func() {
				lines = []string{"Corner Store", "Thank you", "03/04/2024"}
			})

			It("should leave the total absent", func() {
				Expect(record.TotalAmount).To(BeNil())
			})
		})
	})

	Describe("purchase date", func() {
		When("a labeled line holds a date", func() {
			BeforeEach(func() {
				lines = []string{"Receipt", "Printed 12/25/2023", "Date: 03/04/2024", "Total: 5.00"}
			})

			It("should use the labeled line", func() {
				Expect(record.PurchaseDate).NotTo(BeNil())
				Expect(*record.PurchaseDate).To(Equal(time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)))
			})
		})

		When("the labeled line has no date", func() {
			BeforeEach(func() {
				lines = []string{"Transaction approved", "2024-01-15 10:32"}
			})

			It("should fall back to the first date anywhere", func() {
				Expect(*record.PurchaseDate).To(Equal(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)))
			})
		})

		When("the labeled date does not parse", func() {
			BeforeEach(func() {
				lines = []string{"Date: 99/99/9999", "Jan 5, 2024"}
			})

			It("should fall back to the first parseable date in the text", func() {
				Expect(record.PurchaseDate).NotTo(BeNil())
				Expect(*record.PurchaseDate).To(Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)))
			})
		})

		When("no label exists", func() {
			BeforeEach(func() {
				lines = []string{"CORNER STORE", "Jan 5, 2024", "Total 3.00"}
			})

			It("should use the first date shape in the text", func() {
				Expect(*record.PurchaseDate).To(Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)))
			})
		})

		When("nothing date-shaped exists", func() {
			BeforeEach(func() {
				lines = []string{"CORNER STORE", "Total 3.00"}
			})

			It("should leave the date absent", func() {
				Expect(record.PurchaseDate).To(BeNil())
			})
		})
	})

	Describe("invoice number", func() {
		DescribeTable("labeled tokens",
			func(text string, expected string) {
				Expect(Extract([]string{"STORE", text}).InvoiceNumber).To(Equal(expected))
			},
			Entry("invoice number", "Invoice Number: A-1001", "A-1001"),
			Entry("invoice no with period", "INVOICE NO. 88231", "88231"),
			Entry("invoice hash", "Invoice# 5521/B", "5521/B"),
			Entry("abbreviation", "Inv: 99812", "99812"),
			Entry("bare hash", "Order #A1234", "A1234"),
		)

		When("the abbreviation is part of another word", func() {
			BeforeEach(func() {
				lines = []string{"Inventory clearance", "Total 3.00"}
			})

			It("should not match it", func() {
				Expect(record.InvoiceNumber).To(BeEmpty())
			})
		})

		When("a label is followed by a word", func() {
			BeforeEach(func() {
				lines = []string{"Invoice Date: 03/04/2024", "Invoice No: 555"}
			})

			It("should skip it for the next labeled token", func() {
				Expect(record.InvoiceNumber).To(Equal("555"))
			})
		})

		When("the first label wins", func() {
			BeforeEach(func() {
				lines = []string{"Invoice: 111", "Invoice: 222"}
			})

			It("should return the first token", func() {
				Expect(record.InvoiceNumber).To(Equal("111"))
			})
		})
	})

	Describe("merchant name", func() {
		When("the first line is a store name", func() {
			BeforeEach(func() {
				lines = []string{"  ACME HARDWARE  ", "123 Main St", "Total 5.00"}
			})

			It("should return it trimmed", func() {
				Expect(record.MerchantName).To(Equal("ACME HARDWARE"))
			})
		})

		When("leading lines are dates, amounts and labels", func() {
			BeforeEach(func() {
				lines = []string{"", "03/04/2024", "12.50", "Invoice 8812", "Trader Joe's", "Total 5.00"}
			})

			It("should skip them", func() {
				Expect(record.MerchantName).To(Equal("Trader Joe's"))
			})
		})

		When("no line within the top window qualifies", func() {
			BeforeEach(func() {
				lines = []string{
					"03/04/2024", "Total: 5.00", "12.50", "Invoice 123",
					"Tax 0.70", "01/01/2024", "Amount 3.00", "Qty 2",
					"Acme Hardware",
				}
			})

			It("should fall back to the first non-empty line", func() {
				Expect(record.MerchantName).To(Equal("03/04/2024"))
			})
		})

		When("the top window is empty", func() {
			BeforeEach(func() {
				lines = []string{"", "", "", "", "", "", "", "", " ", "Acme Hardware"}
			})

			It("should use the first non-empty line beyond it", func() {
				Expect(record.MerchantName).To(Equal("Acme Hardware"))
			})
		})

		When("every line is blank", func() {
			BeforeEach(func() {
				lines = []string{"", "   "}
			})

			It("should leave the merchant absent", func() {
				Expect(record.MerchantName).To(BeEmpty())
			})
		})
	})

	Describe("line items", func() {
		When("both item families are present", func() {
			BeforeEach(func() {
				lines = []string{"FRESH MART", "Milk 2 x 3.49", "00123 Eggs 4.99", "Total 11.97"}
			})

			It("should return both items in text order", func() {
				Expect(record.Items).To(HaveLen(2))

				Expect(record.Items[0].Name).To(Equal("Milk"))
				Expect(record.Items[0].Code).To(BeEmpty())
				Expect(record.Items[0].Quantity).To(Equal(2))
				Expect(record.Items[0].Price.StringFixed(2)).To(Equal("3.49"))

				Expect(record.Items[1].Name).To(Equal("Eggs"))
				Expect(record.Items[1].Code).To(Equal("00123"))
				Expect(record.Items[1].Quantity).To(Equal(1))
				Expect(record.Items[1].Price.StringFixed(2)).To(Equal("4.99"))
			})
		})

		When("a coded item has no price", func() {
			BeforeEach(func() {
				lines = []string{"4011 Bananas"}
			})

			It("should default the price to zero", func() {
				Expect(record.Items).To(HaveLen(1))
				Expect(record.Items[0].Code).To(Equal("4011"))
				Expect(record.Items[0].Name).To(Equal("Bananas"))
				Expect(record.Items[0].Price.StringFixed(2)).To(Equal("0.00"))
			})
		})

		When("an item uses the at sign", func() {
			BeforeEach(func() {
				lines = []string{"Soda Can 6 @ 0.99"}
			})

			It("should parse quantity and price", func() {
				Expect(record.Items).To(HaveLen(1))
				Expect(record.Items[0].Name).To(Equal("Soda Can"))
				Expect(record.Items[0].Quantity).To(Equal(6))
				Expect(record.Items[0].Price.StringFixed(2)).To(Equal("0.99"))
			})
		})

		When("the quantity is zero", func() {
			BeforeEach(func() {
				lines = []string{"Sample 0 x 1.00"}
			})

			It("should keep the quantity at least one", func() {
				Expect(record.Items[0].Quantity).To(Equal(1))
			})
		})

		When("the same item repeats", func() {
			BeforeEach(func() {
				lines = []string{"Milk 1 x 3.49", "Milk 1 x 3.49"}
			})

			It("should not deduplicate", func() {
				Expect(record.Items).To(HaveLen(2))
			})
		})

		When("no line matches an item shape", func() {
			BeforeEach(func() {
				lines = []string{"CORNER STORE", "Thank you"}
			})

			It("should return an empty list", func() {
				Expect(record.Items).To(BeEmpty())
			})
		})
	})

	Describe("a complete receipt", func() {
		BeforeEach(func() {
			lines = []string{
				"GREEN GROCER",
				"12 Market Street",
				"Invoice #INV-2024-0042",
				"Date: 2024-02-29",
				"Apples 3 x 0.50",
				"20311 Olive Oil 8.99",
				"Subtotal 10.49",
				"Tax 0.84",
				"TOTAL $11.33",
			}
		})

		It("should recover every field", func() {
			Expect(record.MerchantName).To(Equal("GREEN GROCER"))
			Expect(record.InvoiceNumber).To(Equal("INV-2024-0042"))
			Expect(*record.PurchaseDate).To(Equal(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)))
			Expect(record.TotalAmount.StringFixed(2)).To(Equal("11.33"))
			Expect(record.Items).To(HaveLen(2))
			Expect(record.Items[1].Code).To(Equal("20311"))
			Expect(record.Items[1].Name).To(Equal("Olive Oil"))
		})
	})

	Describe("concurrent use", func() {
		BeforeEach(func() {
			lines = []string{"ACME", "Milk 2 x 3.49", "Total 6.98"}
		})

		It("should produce identical records from many goroutines", func() {
			var wg sync.WaitGroup
			results := make([]Record, 16)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = DefaultEngine().Extract(lines)
				}(i)
			}
			wg.Wait()
			for _, r := range results {
				Expect(r.MerchantName).To(Equal(record.MerchantName))
				Expect(r.TotalAmount.Equal(*record.TotalAmount)).To(BeTrue())
				Expect(r.Items).To(HaveLen(len(record.Items)))
			}
		})
	})
})
